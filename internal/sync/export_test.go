package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alfredjeanlab/foundry/internal/model"
)

var exportResources = []model.Resource{
	{Name: "talents", Singular: "Talent"},
	{Name: "regroupActions", Singular: "Regroup action"},
	{Name: "campaign/planets", Singular: "Planet"},
}

func TestExportJSONL_Empty(t *testing.T) {
	ms := newMockStore()
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, exportResources, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.ResourceCount != 3 || h.RecordCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_WithRecords(t *testing.T) {
	ms := newMockStore()
	ms.records["talents"] = []model.Record{
		model.NewRecord(model.F("id", model.Int(1)), model.F("name", model.Text("Ambush <Rank 1>"))),
		model.NewRecord(model.F("id", model.Int(2)), model.F("name", model.Text("Deadeye"))),
	}
	ms.records["regroupActions"] = []model.Record{
		model.NewRecord(
			model.F("id", model.Int(1)),
			model.F("name", model.Text("Regroup A")),
			model.F("options", model.List(
				model.Object(model.NewRecord(model.F("id", model.Int(2)), model.F("title", model.Text("Opt2")))),
				model.Object(model.NewRecord(model.F("id", model.Int(5)), model.F("title", model.Text("Opt1")))),
			)),
		),
	}

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, exportResources, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 talents + 1 regroup action = 4 lines
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.RecordCount != 3 {
		t.Fatalf("header record_count = %d, want 3", h.RecordCount)
	}

	want := []string{
		`{"type":"record","resource":"talents","data":{"id":1,"name":"Ambush <Rank 1>"}}`,
		`{"type":"record","resource":"talents","data":{"id":2,"name":"Deadeye"}}`,
		`{"type":"record","resource":"regroupActions","data":{"id":1,"name":"Regroup A","options":[{"id":2,"title":"Opt2"},{"id":5,"title":"Opt1"}]}}`,
	}
	for i, w := range want {
		if lines[i+1] != w {
			t.Errorf("line %d = %s\nwant %s", i+1, lines[i+1], w)
		}
	}
}

func TestExportJSONL_ListFailureWritesNothing(t *testing.T) {
	ms := newMockStore()
	ms.records["talents"] = []model.Record{model.NewRecord(model.F("id", model.Int(1)))}
	ms.failOn = "campaign/planets"

	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), ms, exportResources, &buf)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "list campaign/planets") {
		t.Errorf("error = %v, want it to name the resource", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes on failure", buf.Len())
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
