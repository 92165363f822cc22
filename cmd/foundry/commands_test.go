package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/client"
	"github.com/alfredjeanlab/foundry/internal/model"
)

const talentsJSON = `[
	{"id":1,"name":"Ambush","xp_cost":20,"requirements":"Stealth 2"},
	{"id":2,"name":"Blind Fighting","xp_cost":10,"requirements":"Awareness 3"},
	{"id":3,"name":"Ambidextrous","xp_cost":30,"requirements":"Agility 3"}
]`

type request struct {
	method, path, body string
}

// serveAPI points foundryClient and httpURL at a test server answering
// from routes ("METHOD /path" -> JSON body). Unknown routes get a 404. The
// returned func reports the requests seen so far.
func serveAPI(t *testing.T, routes map[string]string) func() []request {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, request{r.Method, r.URL.Path, string(body)})
		mu.Unlock()
		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)

	prevClient, prevURL := foundryClient, httpURL
	foundryClient = client.NewHTTPClient(srv.URL)
	httpURL = srv.URL
	t.Cleanup(func() { foundryClient, httpURL = prevClient, prevURL })
	return func() []request {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(seen)
	}
}

// run invokes cmd with flags applied, capturing stdout. Flags are reset to
// their defaults afterwards since commands are package globals.
func run(t *testing.T, cmd *cobra.Command, args []string, flags ...[2]string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	cmd.SetContext(context.Background())
	for _, kv := range flags {
		if err := cmd.Flags().Set(kv[0], kv[1]); err != nil {
			t.Fatalf("set --%s: %v", kv[0], err)
		}
		name := kv[0]
		t.Cleanup(func() {
			f := cmd.Flags().Lookup(name)
			if r, ok := f.Value.(interface{ Replace([]string) error }); ok {
				_ = r.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func withJSON(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
}

func ids(t *testing.T, out string) []int64 {
	t.Helper()
	recs, err := model.ParseRecords([]byte(out))
	if err != nil {
		t.Fatalf("parse output: %v\n%s", err, out)
	}
	var got []int64
	for _, r := range recs {
		id, _ := r.ID()
		got = append(got, id)
	}
	return got
}

func TestListCmd_FilterAndSort(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/talents": talentsJSON})
	withJSON(t)

	out, err := run(t, listCmd, []string{"talents"},
		[2]string{"filter", "AMB"},
		[2]string{"sort", "xp_cost"},
		[2]string{"sort", "xp_cost"},
	)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := ids(t, out); len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("ids = %v, want [3 1]", got)
	}
}

func TestListCmd_FieldRestrictsFilter(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/talents": talentsJSON})
	withJSON(t)

	out, err := run(t, listCmd, []string{"talents"},
		[2]string{"filter", "agility"},
		[2]string{"field", "name"},
	)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := ids(t, out); len(got) != 0 {
		t.Errorf("ids = %v, want none (requirements not searched)", got)
	}
}

func TestListCmd_Table(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/talents": talentsJSON})

	out, err := run(t, listCmd, []string{"talents"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.HasPrefix(out, "ID") || !strings.Contains(out, "Blind Fighting") || !strings.Contains(out, "3 records") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestShowCmd(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/talents/2": `{"id":2,"name":"Blind Fighting"}`})

	out, err := run(t, showCmd, []string{"talents", "2"})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "name: Blind Fighting") {
		t.Errorf("card = %q", out)
	}

	if _, err := run(t, showCmd, []string{"talents", "9"}); err == nil || !client.IsNotFound(err) {
		t.Errorf("missing record: err = %v, want not found", err)
	}
	if _, err := run(t, showCmd, []string{"talents", "abc"}); err == nil {
		t.Error("expected invalid id error")
	}
}

func TestCreateAndEditCmd(t *testing.T) {
	seen := serveAPI(t, map[string]string{
		"POST /api/talents":    `{"id":4,"name":"Ambush","xp_cost":20}`,
		"PATCH /api/talents/4": `{"id":4,"name":"Ambush","xp_cost":25}`,
	})
	withJSON(t)

	if _, err := run(t, createCmd, []string{"talents"},
		[2]string{"set", "name=Ambush"},
		[2]string{"set", "xp_cost=20"},
	); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := seen()[0].body; got != `{"name":"Ambush","xp_cost":20}` {
		t.Errorf("create body = %s", got)
	}

	if _, err := run(t, editCmd, []string{"talents", "4"}); err == nil {
		t.Error("edit without --set should fail")
	}
	out, err := run(t, editCmd, []string{"talents", "4"}, [2]string{"set", "xp_cost=25"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	reqs := seen()
	if got := reqs[len(reqs)-1]; got.method != http.MethodPatch || got.body != `{"xp_cost":25}` {
		t.Errorf("edit request = %+v", got)
	}
	if !strings.Contains(out, `"xp_cost": 25`) {
		t.Errorf("edit output = %s", out)
	}
}

func TestAddAndDeleteCmd(t *testing.T) {
	seen := serveAPI(t, map[string]string{
		"POST /api/regroupActions/3/options": `{"id":3,"name":"Catch Breath","options":[{"id":11,"title":"Steady"}]}`,
		"DELETE /api/talents/4":              `{"message":"Talent deleted"}`,
	})

	if _, err := run(t, addCmd, []string{"regroupActions", "3", "options"}, [2]string{"set", "title=Steady"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := seen()[0]; got.body != `{"title":"Steady"}` {
		t.Errorf("add body = %s", got.body)
	}

	out, err := run(t, deleteCmd, []string{"talents", "4"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.TrimSpace(out) != "Talent deleted" {
		t.Errorf("delete output = %q", out)
	}
}

func TestTimelineCmd(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/timeline": `[
		{"id":1,"title":"Landfall","imperial_code":"3.800.M42"},
		{"id":2,"title":"Old War","imperial_code":"3.050.M41"},
		{"id":3,"title":"Founding","imperial_code":"3.100.M42","description":"A  new\nhope"}
	]`})

	out, err := run(t, timelineCmd, nil)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if strings.Contains(out, "Old War") {
		t.Errorf("other millennium leaked:\n%s", out)
	}
	early := strings.Index(out, "Early 42nd Millennium")
	end := strings.Index(out, "End of the 42nd Millennium")
	if early < 0 || end < early {
		t.Errorf("eras out of order:\n%s", out)
	}
	if !strings.Contains(out, "3.100.M42    Founding") || !strings.Contains(out, "A new hope") {
		t.Errorf("missing event lines:\n%s", out)
	}
}

func TestSearchCmd(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/talents": talentsJSON})

	out, err := run(t, searchCmd, []string{"amb"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Talents") || !strings.Contains(out, "Found 2 matches in this section.") {
		t.Errorf("search output:\n%s", out)
	}
}

func TestHealthCmd(t *testing.T) {
	serveAPI(t, map[string]string{"GET /api/health": `{"status":"ok"}`})
	out, err := run(t, healthCmd, nil)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if strings.TrimSpace(out) != "Health: ok" {
		t.Errorf("health output = %q", out)
	}
}

func TestResourcesCmd(t *testing.T) {
	out, err := run(t, resourcesCmd, nil)
	if err != nil {
		t.Fatalf("resources: %v", err)
	}
	for _, want := range []string{"RESOURCE", "talents", "campaign"} {
		if !strings.Contains(out, want) {
			t.Errorf("resources output missing %q:\n%s", want, out)
		}
	}
}
