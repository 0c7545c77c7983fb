// Package schema holds the OpenClimate table definitions that every written
// table must conform to.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed openclimate_schema.json
var defaultSchema []byte

// ErrUnknownTable is returned for a table the schema does not define
var ErrUnknownTable = errors.New("unknown table")

// Schema maps lower-cased table names to their ordered fields
type Schema struct {
	tables map[string][]string
}

// Default returns the embedded OpenClimate schema
func Default() *Schema {
	s, err := Parse(defaultSchema)
	if err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	return s
}

// Load reads a schema file; an empty path returns Default()
func Load(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes a {table: [fields]} document. JSON and YAML are both accepted.
func Parse(data []byte) (*Schema, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse schema: no tables")
	}

	s := &Schema{tables: make(map[string][]string, len(raw))}
	for name, fields := range raw {
		if len(fields) == 0 {
			return nil, fmt.Errorf("parse schema: table %q has no fields", name)
		}
		s.tables[strings.ToLower(name)] = fields
	}
	return s, nil
}

// Tables returns the table names, sorted
func (s *Schema) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns the ordered fields of a table (case-insensitive lookup)
func (s *Schema) Fields(table string) ([]string, error) {
	fields, ok := s.tables[strings.ToLower(table)]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownTable, table, strings.Join(s.Tables(), ", "))
	}
	return append([]string(nil), fields...), nil
}

// MismatchError reports columns that do not match a table's fields
type MismatchError struct {
	Table   string
	Missing []string
	Extra   []string
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("table %s: %s", e.Table, strings.Join(parts, "; "))
}

// Check verifies that columns hold exactly the table's fields, in any order
func (s *Schema) Check(table string, columns []string) error {
	fields, err := s.Fields(table)
	if err != nil {
		return err
	}

	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}

	mismatch := &MismatchError{Table: table}
	for _, f := range fields {
		if !have[f] {
			mismatch.Missing = append(mismatch.Missing, f)
		}
	}
	for _, c := range columns {
		if !want[c] {
			mismatch.Extra = append(mismatch.Extra, c)
		}
	}
	if len(mismatch.Missing) > 0 || len(mismatch.Extra) > 0 {
		return mismatch
	}
	return nil
}
