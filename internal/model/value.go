package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the field types a record can carry.
// The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
	list []Value
	obj  *Record
}

// Null is the absent value.
var Null = Value{}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a numeric value holding n.
func Int(n int64) Value { return Value{kind: KindNumber, num: float64(n)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Object wraps a record as a value.
func Object(r Record) Value { return Value{kind: KindObject, obj: &r} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Str() string    { return v.text }
func (v Value) Num() float64   { return v.num }
func (v Value) Boolean() bool  { return v.b }
func (v Value) Items() []Value { return v.list }

// Time renders t the way the HTTP API exposes timestamps.
func Time(t time.Time) Value {
	return Text(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// Record returns the nested record of an Object value, or an empty record.
func (v Value) Record() Record {
	if v.obj == nil {
		return Record{}
	}
	return *v.obj
}

// Records returns the object members of a List value.
func (v Value) Records() []Record {
	out := make([]Record, 0, len(v.list))
	for _, item := range v.list {
		if item.kind == KindObject {
			out = append(out, item.Record())
		}
	}
	return out
}

// Int64 reports the value as an integer when it is a whole number or a
// numeric string.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindNumber:
		if v.num != math.Trunc(v.num) {
			return 0, false
		}
		return int64(v.num), true
	case KindText:
		n, err := strconv.ParseInt(strings.TrimSpace(v.text), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Text renders the value as display text. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList, KindObject:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	}
	return ""
}

// SQLArg converts the value to a database/sql argument.
func (v Value) SQLArg() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		if n, ok := v.Int64(); ok {
			return n
		}
		return v.num
	case KindBool:
		return v.b
	case KindList, KindObject:
		data, _ := v.MarshalJSON()
		return data
	}
	return nil
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.Record().Equal(o.Record())
	}
	return false
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindText:
		writeJSONString(buf, v.text)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return fmt.Errorf("unsupported number %v", v.num)
		}
		buf.WriteString(formatNumber(v.num))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.Record().writeJSON(buf)
	}
	return nil
}

// writeJSONString encodes s without HTML escaping, matching what browsers
// produce with JSON.stringify.
func writeJSONString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}

// formatNumber renders f the way JSON.stringify does: plain decimals between
// 1e-6 and 1e21 in magnitude, exponent form outside, e.g. "1e+21", "1.5e-7".
func formatNumber(f float64) string {
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-6 && abs < 1e21) || math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + exp
}
