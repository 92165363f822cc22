package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ResourceCount int       `json:"resource_count"`
	RecordCount   int       `json:"record_count"`
}

// line is a single record line of the export.
type line struct {
	Type     string       `json:"type"`
	Resource string       `json:"resource"`
	Data     model.Record `json:"data"`
}

// ExportJSONL writes every record of resources as JSONL to w: a header
// line, then one line per record. Resources keep the given order and
// records come back in id order, aggregated resources with their child
// arrays. Nothing is written when any list fails.
func ExportJSONL(ctx context.Context, s store.Store, resources []model.Resource, w io.Writer) error {
	lists := make([][]model.Record, len(resources))
	total := 0
	for i, res := range resources {
		recs, err := s.List(ctx, res)
		if err != nil {
			return fmt.Errorf("list %s: %w", res.Name, err)
		}
		lists[i] = recs
		total += len(recs)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       FormatVersion,
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		ResourceCount: len(resources),
		RecordCount:   total,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for i, res := range resources {
		for _, rec := range lists[i] {
			if err := enc.Encode(line{Type: "record", Resource: res.Name, Data: rec}); err != nil {
				id, _ := rec.ID()
				return fmt.Errorf("encode %s %d: %w", res.Name, id, err)
			}
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
