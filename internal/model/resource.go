package model

import (
	"strings"
)

// ChildKind describes a child table folded into its parent as a named array.
type ChildKind struct {
	Name       string   // array field on the parent record
	Table      string   // child table
	ForeignKey string   // child column referencing the parent id
	Fields     []string // projected child columns; always starts with "id"
}

// Writable returns the child columns a caller may set.
func (c ChildKind) Writable() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f != "id" {
			out = append(out, f)
		}
	}
	return out
}

// Column is a labelled SQL expression added to a resource's select list.
type Column struct {
	Expr string
	As   string
}

// Join is a lookup LEFT JOIN contributing labelled columns.
type Join struct {
	Table  string
	Alias  string
	On     string
	Select []Column
}

// Resource declaratively describes one REST resource and the table behind it.
type Resource struct {
	Name     string
	Aliases  []string
	Table    string
	Singular string
	Columns  []string
	Defaults map[string]Value
	Joins    []Join
	Children []ChildKind
	Summary  []string

	// ReadOnly resources serve list only.
	ReadOnly bool
	// Singleton resources answer a list request with the lowest-id row.
	Singleton bool
	// NotFound overrides the "<Singular> not found" message.
	NotFound string
	// Normalize runs over input records before they are written.
	Normalize func(Record) Record
}

// Paths returns the resource name followed by its aliases.
func (r Resource) Paths() []string {
	return append([]string{r.Name}, r.Aliases...)
}

// Topic returns the event topic segment for the resource.
func (r Resource) Topic() string {
	return strings.ReplaceAll(r.Name, "/", ".")
}

// Aggregated reports whether the resource folds child tables.
func (r Resource) Aggregated() bool { return len(r.Children) > 0 }

// Child looks up a child kind by array name.
func (r Resource) Child(name string) (ChildKind, bool) {
	for _, c := range r.Children {
		if c.Name == name {
			return c, true
		}
	}
	return ChildKind{}, false
}

func (r Resource) NotFoundMessage() string {
	if r.NotFound != "" {
		return r.NotFound
	}
	return r.Singular + " not found"
}

func (r Resource) DeletedMessage() string {
	return r.Singular + " deleted"
}

// Input projects an arbitrary input record onto the writable columns, in
// column order. Keys match case-insensitively since unquoted Postgres
// identifiers fold to lower case. Missing columns become Null unless a
// default applies; a default also replaces empty text.
func (r Resource) Input(in Record) Record {
	if r.Normalize != nil {
		in = r.Normalize(in.Clone())
	}
	out := project(in, r.Columns)
	for col, def := range r.Defaults {
		v := out.Get(col)
		if v.IsNull() || (v.Kind() == KindText && v.Str() == "") {
			out.Set(col, def)
		}
	}
	return out
}

// Input projects an input record onto the child's writable columns.
func (c ChildKind) Input(in Record) Record {
	return project(in, c.Writable())
}

func project(in Record, cols []string) Record {
	var out Record
	for _, col := range cols {
		out.Set(col, lookupFold(in, col))
	}
	return out
}

func lookupFold(in Record, name string) Value {
	if in.Has(name) {
		return in.Get(name)
	}
	for _, f := range in.Fields() {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return Null
}

// Lookup finds a catalog resource by name or alias.
func Lookup(name string) (Resource, bool) {
	for _, r := range Catalog() {
		for _, p := range r.Paths() {
			if p == name {
				return r, true
			}
		}
	}
	return Resource{}, false
}
