package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Missing is a set of markers that denote an absent observation
type Missing map[string]bool

// NewMissing builds a marker set. The empty string and "NaN" are always missing.
func NewMissing(markers ...string) Missing {
	m := Missing{"": true, "NaN": true}
	for _, v := range markers {
		m[v] = true
	}
	return m
}

// joined reports whether s is a list of markers such as "NO,NE" or "IE, NA"
func (m Missing) joined(s string) bool {
	if !strings.Contains(s, ",") {
		return false
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !m[part] {
			return false
		}
	}
	return true
}

// ParseNumber parses an observation. ok is false when the value is a missing
// marker or a comma-joined list of them. Thousands separators and
// surrounding spaces are ignored.
func ParseNumber(raw string, missing Missing) (v float64, ok bool, err error) {
	s := strings.TrimSpace(raw)
	if missing[s] || missing.joined(s) {
		return 0, false, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse number %q: %w", raw, err)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	if math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("parse number %q: infinite", raw)
	}
	return v, true, nil
}
