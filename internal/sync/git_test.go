package sync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// newClone creates a bare origin with one commit on main and returns the
// path of a working clone pushing to it.
func newClone(t *testing.T) (clone, origin string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
	origin = t.TempDir()
	gitIn(t, origin, "init", "--bare")

	clone = filepath.Join(t.TempDir(), "repo")
	gitIn(t, filepath.Dir(clone), "clone", origin, "repo")
	gitIn(t, clone, "config", "user.email", "sync@foundry.test")
	gitIn(t, clone, "config", "user.name", "Foundry Sync")
	gitIn(t, clone, "branch", "-m", "main")
	if err := os.WriteFile(filepath.Join(clone, "README"), []byte("reference data\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitIn(t, clone, "add", ".")
	gitIn(t, clone, "commit", "-m", "init")
	gitIn(t, clone, "push", "origin", "main")
	return clone, origin
}

func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestGitDestination_CommitsOnlyChanges(t *testing.T) {
	clone, origin := newClone(t)
	dest := NewGitDestination(clone, "foundry.jsonl", "main")
	ctx := context.Background()

	first := []byte(`{"version":"1","type":"header","resource_count":0,"record_count":0}` + "\n")
	if err := dest.Write(ctx, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := dest.Write(ctx, first); err != nil {
		t.Fatalf("unchanged write: %v", err)
	}
	if n := gitIn(t, clone, "rev-list", "--count", "HEAD"); n != "2" {
		t.Fatalf("commits = %s, want 2 (init + one export)", n)
	}

	second := []byte(`{"version":"1","type":"header","resource_count":1,"record_count":1}` + "\n" +
		`{"type":"record","resource":"talents","data":{"id":1,"name":"Ambush"}}` + "\n")
	if err := dest.Write(ctx, second); err != nil {
		t.Fatalf("changed write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(clone, "foundry.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(second) {
		t.Fatalf("file = %q", got)
	}
	log := gitIn(t, origin, "log", "--format=%s", "main")
	if strings.Count(log, "foundry: update reference export") != 2 {
		t.Fatalf("origin log missing pushed exports:\n%s", log)
	}
}

func TestGitDestination_SubDirectory(t *testing.T) {
	clone, _ := newClone(t)
	dest := NewGitDestination(clone, "exports/foundry.jsonl", "main")

	data := []byte(`{"type":"header"}` + "\n")
	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(clone, "exports", "foundry.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Fatalf("file = %q", got)
	}
}

func TestGitDestination_MissingBranch(t *testing.T) {
	clone, _ := newClone(t)
	dest := NewGitDestination(clone, "foundry.jsonl", "release")

	err := dest.Write(context.Background(), []byte("{}\n"))
	if err == nil {
		t.Fatal("expected checkout error")
	}
	if !strings.Contains(err.Error(), "git checkout") || !strings.Contains(err.Error(), "release") {
		t.Fatalf("error should carry git's message, got %v", err)
	}
}

func TestGitDestination_String(t *testing.T) {
	d := NewGitDestination("/srv/exports", "foundry.jsonl", "main")
	if got := d.String(); got != "git:/srv/exports/foundry.jsonl@main" {
		t.Fatalf("String() = %q", got)
	}
}
