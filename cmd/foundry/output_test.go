package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alfredjeanlab/foundry/internal/model"
)

func TestParseSets(t *testing.T) {
	rec, err := parseSets([]string{"name=Ambush", "xp_cost=20", "ranked=true", "effect=null", "note=a=b", "blank="})
	if err != nil {
		t.Fatalf("parseSets: %v", err)
	}
	if got := strings.Join(rec.Keys(), ","); got != "name,xp_cost,ranked,effect,note,blank" {
		t.Errorf("keys = %s", got)
	}
	checks := []struct {
		key  string
		kind model.Kind
		text string
	}{
		{"name", model.KindText, "Ambush"},
		{"xp_cost", model.KindNumber, "20"},
		{"ranked", model.KindBool, "true"},
		{"effect", model.KindNull, ""},
		{"note", model.KindText, "a=b"},
		{"blank", model.KindText, ""},
	}
	for _, c := range checks {
		v := rec.Get(c.key)
		if v.Kind() != c.kind || v.Text() != c.text {
			t.Errorf("%s = %v %q, want %v %q", c.key, v.Kind(), v.Text(), c.kind, c.text)
		}
	}
}

func TestParseSets_Invalid(t *testing.T) {
	for _, in := range []string{"novalue", "=x", "  =x"} {
		if _, err := parseSets([]string{in}); err == nil {
			t.Errorf("parseSets(%q): expected error", in)
		}
	}
}

func TestTableColumns(t *testing.T) {
	got := tableColumns("talents", nil)
	want := "id,name,xp_cost,requirements,rank_requirement"
	if strings.Join(got, ",") != want {
		t.Errorf("known resource columns = %v, want %s", got, want)
	}

	rec := model.NewRecord(
		model.F("id", model.Int(1)),
		model.F("label", model.Text("x")),
		model.F("options", model.List()),
	)
	got = tableColumns("unlisted", []model.Record{rec})
	if strings.Join(got, ",") != "id,label" {
		t.Errorf("fallback columns = %v, want id,label", got)
	}
	if got := tableColumns("unlisted", nil); len(got) != 1 || got[0] != "id" {
		t.Errorf("empty fallback = %v", got)
	}
}

func TestPrintRecordTable(t *testing.T) {
	recs := []model.Record{
		model.NewRecord(model.F("id", model.Int(1)), model.F("name", model.Text("Ambush"))),
		model.NewRecord(model.F("id", model.Int(2)), model.F("name", model.Text("Blind   Fighting\nexpert"))),
	}
	var buf bytes.Buffer
	if err := printRecordTable(&buf, []string{"id", "name"}, recs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "NAME") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Blind Fighting expert") {
		t.Errorf("whitespace not collapsed: %q", lines[2])
	}
	if !strings.Contains(buf.String(), "2 records") {
		t.Errorf("missing footer:\n%s", buf.String())
	}
}

func TestCellTruncates(t *testing.T) {
	got := cell(model.Text(strings.Repeat("x", 80)))
	if len(got) != maxCellWidth || !strings.HasSuffix(got, "...") {
		t.Errorf("cell = %q (%d)", got, len(got))
	}
}

func TestPrintRecordCard(t *testing.T) {
	rec := model.NewRecord(
		model.F("id", model.Int(3)),
		model.F("name", model.Text("Overwatch")),
		model.F("effect", model.Null),
		model.F("options", model.List(
			model.Object(model.NewRecord(model.F("id", model.Int(9)), model.F("name", model.Text("Reload")))),
		)),
	)
	var buf bytes.Buffer
	printRecordCard(&buf, rec)
	want := "id:      3\n" +
		"name:    Overwatch\n" +
		"effect:  -\n" +
		"options: (1)\n" +
		"  - id=9  name=Reload\n"
	if buf.String() != want {
		t.Errorf("card =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"named", `{"resource":"talents","id":4,"record":{"id":4,"name":"Ambush"}}`, "talents #4 Ambush"},
		{"titled", `{"resource":"timeline","id":2,"record":{"id":2,"title":"Landfall"}}`, "timeline #2 Landfall"},
		{"deleted", `{"resource":"talents","id":4}`, "talents #4 deleted"},
		{"unlabeled", `{"resource":"campaign","id":1,"record":{"id":1}}`, "campaign #1"},
		{"garbage", `not json`, "unreadable event: not json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := describeEvent([]byte(tc.data)); got != tc.want {
				t.Errorf("describeEvent = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestColorizeHelpOutput_PlainWhenColorOff(t *testing.T) {
	in := "Usage:\n  foundry <command>\n\nRecords:\n  list        List the records of a resource\n"
	if got := colorizeHelpOutput(in); got != in {
		t.Errorf("colorizeHelpOutput changed text with color off:\n%s", got)
	}
}

func TestPrintJSON_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]string{"req": "<Rank 1> & up"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"<Rank 1> & up"`) {
		t.Errorf("printJSON escaped HTML: %s", buf.String())
	}
}
