// Package view holds the in-memory shaping the CLI applies to fetched
// records: substring filtering, key sorting and timeline grouping.
package view

import (
	"slices"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// Filter keeps the records where any of fields contains query,
// case-insensitively. An empty query returns records unchanged.
func Filter(records []model.Record, query string, fields ...string) []model.Record {
	if query == "" {
		return records
	}
	needle := strings.ToLower(query)
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		for _, f := range fields {
			v := r.Get(f)
			if v.IsNull() {
				continue
			}
			if strings.Contains(strings.ToLower(v.Text()), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SortState is the active sort key and direction.
type SortState struct {
	Key  string
	Desc bool
}

// Toggle selects key. Selecting the current key flips the direction;
// a new key starts ascending.
func (s *SortState) Toggle(key string) {
	if s.Key == key {
		s.Desc = !s.Desc
		return
	}
	s.Key = key
	s.Desc = false
}

// Sort returns a stably sorted copy of records. An empty key leaves the
// order as is.
func Sort(records []model.Record, state SortState) []model.Record {
	out := slices.Clone(records)
	if state.Key == "" {
		return out
	}
	slices.SortStableFunc(out, func(a, b model.Record) int {
		c := model.Compare(a.Get(state.Key), b.Get(state.Key))
		if state.Desc {
			return -c
		}
		return c
	})
	return out
}

// Era is one labelled group of timeline events.
type Era struct {
	Label  string
	Events []model.Record
}

// TimelineFor selects the events of a millennium, orders them by the year
// fraction of their imperial code and groups them by era in first-seen
// order.
func TimelineFor(records []model.Record, millennium int) []Era {
	tag := "M" + strconv.Itoa(millennium)
	var events []model.Record
	for _, r := range records {
		m, ok := r.Get("millennium").Int64()
		code := r.Get("imperial_code").Text()
		if (ok && m == int64(millennium)) || (code != "" && strings.Contains(code, tag)) {
			events = append(events, r)
		}
	}
	slices.SortStableFunc(events, func(a, b model.Record) int {
		return model.ImperialFraction(a.Get("imperial_code").Text()) -
			model.ImperialFraction(b.Get("imperial_code").Text())
	})

	var eras []Era
	index := map[string]int{}
	for _, ev := range events {
		label := model.EraLabel(model.ImperialCode(ev))
		i, ok := index[label]
		if !ok {
			i = len(eras)
			index[label] = i
			eras = append(eras, Era{Label: label})
		}
		eras[i].Events = append(eras[i].Events, ev)
	}
	return eras
}
