package reference

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
)

type dictEntry struct {
	Wrong string `csv:"wrong"`
	Right string `csv:"right"`
}

// Dictionary maps known misspellings of country names to a canonical form
type Dictionary struct {
	corrections map[string]string
	canonical   map[string]bool
}

// ParseDictionary reads a ClimActor country dictionary (columns wrong, right).
// Values are stripped. When a misspelling is listed twice the last entry wins.
func ParseDictionary(data []byte) (*Dictionary, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("dictionary header: %w", err)
	}
	if !hasColumns(dec.Header(), "wrong", "right") {
		return nil, fmt.Errorf("dictionary header %v: want columns wrong and right", dec.Header())
	}

	d := &Dictionary{
		corrections: make(map[string]string),
		canonical:   make(map[string]bool),
	}
	for {
		var e dictEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("dictionary: %w", err)
		}
		wrong := strings.TrimSpace(e.Wrong)
		right := strings.TrimSpace(e.Right)
		if right == "" {
			continue
		}
		d.canonical[right] = true
		if wrong != "" {
			d.corrections[wrong] = right
		}
	}
	if len(d.canonical) == 0 {
		return nil, fmt.Errorf("dictionary: no entries")
	}
	return d, nil
}

func hasColumns(header []string, want ...string) bool {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// Harmonize returns the canonical spelling of name, or name unchanged when
// it is not a known misspelling. Replacement is a single exact-match pass.
func (d *Dictionary) Harmonize(name string) string {
	if right, ok := d.corrections[name]; ok {
		return right
	}
	return name
}

// IsCanonical reports whether name is a canonical dictionary name
func (d *Dictionary) IsCanonical(name string) bool {
	return d.canonical[name]
}

// Len returns the number of canonical names
func (d *Dictionary) Len() int {
	return len(d.canonical)
}

// Unmatched returns the sorted, unique names that are not canonical
func (d *Dictionary) Unmatched(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if d.canonical[n] || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// UnmatchedNamesError lists names that did not harmonize to a canonical form
type UnmatchedNamesError struct {
	Column string
	Names  []string
}

func (e *UnmatchedNamesError) Error() string {
	return fmt.Sprintf("%d value(s) in %q are not canonical country names: %s",
		len(e.Names), e.Column, strings.Join(e.Names, "; "))
}

// CheckAllMatch returns an *UnmatchedNamesError unless every name is canonical
func (d *Dictionary) CheckAllMatch(column string, names []string) error {
	if unmatched := d.Unmatched(names); len(unmatched) > 0 {
		return &UnmatchedNamesError{Column: column, Names: unmatched}
	}
	return nil
}
