package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/ui"
)

const maxCellWidth = 50

// printJSON writes v indented, without HTML escaping.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// tableColumns picks the columns for a list: the resource summary when the
// resource is known, otherwise every scalar key of the first record.
func tableColumns(resource string, recs []model.Record) []string {
	if res, ok := model.Lookup(resource); ok && len(res.Summary) > 0 {
		return append([]string{"id"}, res.Summary...)
	}
	if len(recs) == 0 {
		return []string{"id"}
	}
	var cols []string
	for _, f := range recs[0].Fields() {
		if k := f.Value.Kind(); k != model.KindList && k != model.KindObject {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

func printRecordTable(w io.Writer, cols []string, recs []model.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range recs {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r.Get(c))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	noun := "records"
	if len(recs) == 1 {
		noun = "record"
	}
	fmt.Fprintf(w, "\n%s\n", ui.RenderMuted(fmt.Sprintf("%d %s", len(recs), noun)))
	return nil
}

func cell(v model.Value) string {
	s := strings.Join(strings.Fields(v.Text()), " ")
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

// printRecordCard renders one record as "key: value" lines. Child arrays
// are listed beneath their key, one entry per line.
func printRecordCard(w io.Writer, r model.Record) {
	width := 0
	for _, f := range r.Fields() {
		width = max(width, len(f.Name))
	}
	for _, f := range r.Fields() {
		label := ui.RenderKey(fmt.Sprintf("%-*s", width+1, f.Name+":"))
		switch f.Value.Kind() {
		case model.KindNull:
			fmt.Fprintf(w, "%s %s\n", label, ui.RenderMuted("-"))
		case model.KindList:
			items := f.Value.Items()
			fmt.Fprintf(w, "%s %s\n", label, ui.RenderMuted(fmt.Sprintf("(%d)", len(items))))
			for _, item := range items {
				fmt.Fprintf(w, "  - %s\n", childLine(item))
			}
		default:
			fmt.Fprintf(w, "%s %s\n", label, f.Value.Text())
		}
	}
}

func childLine(v model.Value) string {
	if v.Kind() != model.KindObject {
		return v.Text()
	}
	var parts []string
	for _, f := range v.Record().Fields() {
		parts = append(parts, f.Name+"="+f.Value.Text())
	}
	return strings.Join(parts, "  ")
}

// parseSets turns repeated key=value flags into a record, in flag order.
// Values that are JSON scalars keep their type; anything else is text.
func parseSets(sets []string) (model.Record, error) {
	var rec model.Record
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return model.Record{}, fmt.Errorf("invalid --set %q (want key=value)", kv)
		}
		rec.Set(k, model.ParseScalar(v))
	}
	return rec, nil
}
