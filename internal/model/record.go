package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Field is one named entry of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field name to Value. Field order is
// preserved through JSON encoding and decoding.
type Record struct {
	fields []Field
}

// NewRecord builds a record from fields. Later duplicates overwrite earlier ones.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// F is shorthand for constructing a Field.
func F(name string, v Value) Field { return Field{Name: name, Value: v} }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Fields returns the fields in order. The slice must not be modified.
func (r Record) Fields() []Field { return r.fields }

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Get returns the named field, or Null when it is absent.
func (r Record) Get(name string) Value {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value
		}
	}
	return Null
}

// Has reports whether the record carries the named field (even if Null).
func (r Record) Has(name string) bool {
	for _, f := range r.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Set replaces the named field in place or appends it.
func (r *Record) Set(name string, v Value) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Delete removes the named field.
func (r *Record) Delete(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields = append(r.fields[:i:i], r.fields[i+1:]...)
			return
		}
	}
}

// Clone returns a copy that shares no field storage with r.
func (r Record) Clone() Record {
	out := Record{fields: make([]Field, len(r.fields))}
	copy(out.fields, r.fields)
	return out
}

// ID returns the record's integer "id" field.
func (r Record) ID() (int64, bool) {
	return r.Get("id").Int64()
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

// String renders the record as compact JSON.
func (r Record) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid record: %v>", err)
	}
	return string(data)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Record) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, f.Name)
		buf.WriteByte(':')
		if err := f.Value.writeJSON(buf); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// ErrInvalidJSON is returned when a payload cannot be parsed.
var ErrInvalidJSON = errors.New("invalid JSON")

// ParseValue decodes any JSON document into a Value, preserving object key
// order.
func ParseValue(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Null, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseRecord decodes a JSON object into a Record.
func ParseRecord(data []byte) (Record, error) {
	v, err := ParseValue(data)
	if err != nil {
		return Record{}, err
	}
	if v.Kind() != KindObject {
		return Record{}, fmt.Errorf("%w: expected object, got %s", ErrInvalidJSON, v.Kind())
	}
	return v.Record(), nil
}

// ParseRecords decodes a JSON array of objects. Non-object elements are
// rejected.
func ParseRecords(data []byte) ([]Record, error) {
	v, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	if v.Kind() != KindList {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrInvalidJSON, v.Kind())
	}
	out := make([]Record, 0, len(v.Items()))
	for i, item := range v.Items() {
		if item.Kind() != KindObject {
			return nil, fmt.Errorf("%w: element %d is %s", ErrInvalidJSON, i, item.Kind())
		}
		out = append(out, item.Record())
	}
	return out, nil
}

// ParseScalar interprets s as a JSON scalar (number, bool, null) when it is
// one, and as plain text otherwise. Used for key=value command-line input.
func ParseScalar(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Text(s)
	}
	if gjson.Valid(trimmed) {
		res := gjson.Parse(trimmed)
		switch res.Type {
		case gjson.Number, gjson.True, gjson.False, gjson.Null:
			return fromResult(res)
		}
	}
	return Text(s)
}

func fromResult(res gjson.Result) Value {
	switch res.Type {
	case gjson.Null:
		return Null
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(res.Float())
	case gjson.String:
		return Text(res.String())
	}
	if res.IsArray() {
		items := []Value{}
		res.ForEach(func(_, item gjson.Result) bool {
			items = append(items, fromResult(item))
			return true
		})
		return List(items...)
	}
	var rec Record
	res.ForEach(func(key, item gjson.Result) bool {
		rec.Set(key.String(), fromResult(item))
		return true
	})
	return Object(rec)
}
