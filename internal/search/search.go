// Package search counts keyword occurrences across every reference
// category the service exposes.
package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// Fetcher returns the raw JSON body served at url.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// Result is one category with at least one match.
type Result struct {
	Category string `json:"category"`
	Path     string `json:"path"`
	Count    int    `json:"count"`
}

// Searcher fans a query out over a fixed list of endpoints.
type Searcher struct {
	fetcher   Fetcher
	endpoints []Endpoint
	logger    *slog.Logger
}

// NewSearcher returns a Searcher. A nil logger uses slog.Default().
func NewSearcher(f Fetcher, endpoints []Endpoint, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{fetcher: f, endpoints: endpoints, logger: logger}
}

// Search fetches every endpoint concurrently and counts case-insensitive,
// literal, non-overlapping occurrences of query in each category's records.
// A category that cannot be fetched or parsed counts zero. Results follow
// endpoint order and omit categories without matches.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, nil
	}
	needle := strings.ToLower(query)

	counts := make([]int, len(s.endpoints))
	var g errgroup.Group
	for i, ep := range s.endpoints {
		g.Go(func() error {
			data, err := s.fetcher.FetchJSON(ctx, ep.URL)
			if err != nil {
				s.logger.Warn("search fetch failed", "category", ep.Label, "url", ep.URL, "err", err)
				return nil
			}
			n, err := countMatches(data, needle)
			if err != nil {
				s.logger.Warn("search parse failed", "category", ep.Label, "url", ep.URL, "err", err)
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []Result
	for i, ep := range s.endpoints {
		if counts[i] > 0 {
			results = append(results, Result{Category: ep.Label, Path: ep.Path, Count: counts[i]})
		}
	}
	return results, nil
}

// countMatches counts needle in each record of payload. An array contributes
// each element, an object contributes itself, anything else nothing.
func countMatches(payload []byte, needle string) (int, error) {
	v, err := model.ParseValue(payload)
	if err != nil {
		return 0, err
	}
	var items []model.Value
	switch v.Kind() {
	case model.KindList:
		items = v.Items()
	case model.KindObject:
		items = []model.Value{v}
	default:
		return 0, nil
	}

	total := 0
	for _, item := range items {
		flat, err := item.MarshalJSON()
		if err != nil {
			return 0, err
		}
		total += strings.Count(strings.ToLower(string(flat)), needle)
	}
	return total, nil
}
