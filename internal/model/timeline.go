package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Millennium is the in-setting millennium imperial codes are stamped with.
const Millennium = 42

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats the API accepts for event_date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ImperialDate renders t as an imperial dating code "3.FFF.M42", where FFF
// is the day of the year scaled to thousandths.
func ImperialDate(t time.Time) string {
	fraction := int(math.Floor(float64(t.YearDay()) / 365 * 1000))
	return fmt.Sprintf("3.%03d.M%d", fraction, Millennium)
}

// ImperialFraction returns the year fraction segment of an imperial code,
// or 0 when it is absent or malformed.
func ImperialFraction(code string) int {
	parts := strings.Split(code, ".")
	if len(parts) < 2 {
		return 0
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return n
}

// EraLabel names the part of the millennium an imperial code falls in.
func EraLabel(code string) string {
	if code == "" {
		return "Undated Record"
	}
	switch frac := ImperialFraction(code); {
	case frac < 250:
		return "Early 42nd Millennium"
	case frac < 500:
		return "Mid 42nd Millennium"
	case frac < 750:
		return "Late 42nd Millennium"
	default:
		return "End of the 42nd Millennium"
	}
}

// ImperialCode returns the record's imperial_code, deriving it from
// event_date when blank.
func ImperialCode(r Record) string {
	if code := strings.TrimSpace(r.Get("imperial_code").Text()); code != "" {
		return code
	}
	if t, ok := ParseDate(r.Get("event_date").Text()); ok {
		return ImperialDate(t)
	}
	return ""
}

func fillImperialCode(r Record) Record {
	code := strings.TrimSpace(lookupFold(r, "imperial_code").Text())
	if code != "" {
		return r
	}
	if t, ok := ParseDate(lookupFold(r, "event_date").Text()); ok {
		r.Set("imperial_code", Text(ImperialDate(t)))
	}
	return r
}
