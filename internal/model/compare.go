package model

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// Compare orders two values for display sorting. Null sorts as empty text,
// text compares case-insensitively, numbers numerically, false before true.
// A number against null or numeric text compares numerically, with null as
// zero. Other mixed kinds compare by their lowercased text rendering.
func Compare(a, b Value) int {
	if x, y, ok := numericPair(a, b); ok {
		return cmp.Compare(x, y)
	}
	if a.IsNull() {
		a = Text("")
	}
	if b.IsNull() {
		b = Text("")
	}
	if a.kind == b.kind {
		switch a.kind {
		case KindNumber:
			return cmp.Compare(a.num, b.num)
		case KindBool:
			switch {
			case a.b == b.b:
				return 0
			case !a.b:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(strings.ToLower(a.Text()), strings.ToLower(b.Text()))
}

// numericPair reports both values as numbers when exactly one of them is a
// number and the other is null or text that parses as one.
func numericPair(a, b Value) (float64, float64, bool) {
	switch {
	case a.kind == KindNumber && b.kind != KindNumber:
		y, ok := asNumber(b)
		return a.num, y, ok
	case b.kind == KindNumber && a.kind != KindNumber:
		x, ok := asNumber(a)
		return x, b.num, ok
	}
	return 0, 0, false
}

func asNumber(v Value) (float64, bool) {
	switch v.kind {
	case KindNull:
		return 0, true
	case KindText:
		s := strings.TrimSpace(v.text)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}
