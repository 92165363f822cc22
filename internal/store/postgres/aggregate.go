package postgres

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// selectQuery builds the read statement for a resource. Each child kind is
// folded by its own lateral subquery so that several kinds never multiply
// each other's rows; json_agg over zero rows yields NULL, which COALESCE
// turns into an empty array.
//
// The parent is aliased p, lookup joins use their own aliases and child
// subqueries are k0, k1, ... over rows aliased ch.
func selectQuery(res model.Resource, where, suffix string) string {
	var b strings.Builder
	b.WriteString("SELECT p.*")
	for _, j := range res.Joins {
		for _, c := range j.Select {
			fmt.Fprintf(&b, ", %s AS %s", c.Expr, c.As)
		}
	}
	for i, k := range res.Children {
		fmt.Fprintf(&b, ", COALESCE(k%d.items, '[]'::json) AS %s", i, k.Name)
	}
	fmt.Fprintf(&b, "\nFROM %s p", res.Table)
	for _, j := range res.Joins {
		fmt.Fprintf(&b, "\nLEFT JOIN %s %s ON %s", j.Table, j.Alias, j.On)
	}
	for i, k := range res.Children {
		fmt.Fprintf(&b, "\nLEFT JOIN LATERAL (\n\tSELECT json_agg(json_build_object(%s) ORDER BY ch.id) AS items\n\tFROM %s ch WHERE ch.%s = p.id\n) k%d ON true",
			childObject(k), k.Table, k.ForeignKey, i)
	}
	if where != "" {
		b.WriteString("\nWHERE ")
		b.WriteString(where)
	}
	b.WriteString("\nORDER BY p.id ASC")
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	return b.String()
}

func childObject(k model.ChildKind) string {
	pairs := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		pairs[i] = fmt.Sprintf("'%s', ch.%s", f, f)
	}
	return strings.Join(pairs, ", ")
}

func listQuery(res model.Resource) string {
	return selectQuery(res, "", "")
}

func getQuery(res model.Resource) string {
	return selectQuery(res, "p.id = $1", "")
}

func firstQuery(res model.Resource) string {
	return selectQuery(res, "", "LIMIT 1")
}

// childNames returns the set of column names that carry aggregated JSON.
func childNames(res model.Resource) map[string]bool {
	if len(res.Children) == 0 {
		return nil
	}
	names := make(map[string]bool, len(res.Children))
	for _, k := range res.Children {
		names[k.Name] = true
	}
	return names
}
