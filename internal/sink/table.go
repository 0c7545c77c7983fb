// Package sink writes OpenClimate tables to CSV files and SQL databases.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jszwec/csvutil"
)

// Table is a named set of string rows.
//
// Key names the column that identifies a row's owner. When Key is set, a
// write replaces only stored rows whose Key value is in Scope, or in Rows
// when Scope is nil. Without Key the whole table is replaced.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	Key     string
	Scope   []string
}

// Sink stores tables, replacing the previous content they cover
type Sink interface {
	Write(ctx context.Context, t Table) error
}

// recorder collects encoded records in memory
type recorder struct {
	rows [][]string
}

func (r *recorder) Write(rec []string) error {
	r.rows = append(r.rows, append([]string(nil), rec...))
	return nil
}

// TableOf encodes typed rows into a Table using their csv tags
func TableOf[T any](name string, rows []T) (Table, error) {
	var zero T
	columns, err := csvutil.Header(zero, "csv")
	if err != nil {
		return Table{}, fmt.Errorf("table %s header: %w", name, err)
	}

	rec := &recorder{}
	enc := csvutil.NewEncoder(rec)
	enc.AutoHeader = false
	if len(rows) > 0 {
		if err := enc.Encode(rows); err != nil {
			return Table{}, fmt.Errorf("table %s encode: %w", name, err)
		}
	}

	return Table{Name: name, Columns: columns, Rows: rec.rows}, nil
}

// Reorder returns the table with its columns in the given order. Every
// column must exist in the table.
func (t Table) Reorder(columns []string) (Table, error) {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c] = i
	}

	perm := make([]int, len(columns))
	for i, c := range columns {
		j, ok := idx[c]
		if !ok {
			return Table{}, fmt.Errorf("table %s: no column %q", t.Name, c)
		}
		perm[i] = j
	}

	out := Table{
		Name:    t.Name,
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, len(t.Rows)),
		Key:     t.Key,
		Scope:   t.Scope,
	}
	for r, row := range t.Rows {
		rec := make([]string, len(perm))
		for i, j := range perm {
			rec[i] = row[j]
		}
		out.Rows[r] = rec
	}
	return out, nil
}

// Column returns the index of a column
func (t Table) Column(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("table %s: no column %q", t.Name, name)
}

// KeyScope returns the Key values a write replaces
func (t Table) KeyScope() ([]string, error) {
	if t.Key == "" {
		return nil, nil
	}
	if t.Scope != nil {
		return t.Scope, nil
	}
	k, err := t.Column(t.Key)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(t.Rows))
	scope := []string{}
	for _, row := range t.Rows {
		if !seen[row[k]] {
			seen[row[k]] = true
			scope = append(scope, row[k])
		}
	}
	return scope, nil
}

// Dedupe drops rows whose value in column key was already seen, keeping the
// first. key becomes the table's Key.
func (t Table) Dedupe(key string) (Table, error) {
	k, err := t.Column(key)
	if err != nil {
		return Table{}, err
	}

	out := Table{Name: t.Name, Columns: t.Columns, Key: key, Scope: t.Scope}
	seen := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		if seen[row[k]] {
			continue
		}
		seen[row[k]] = true
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Merge adds the rows of prev whose Key value t does not cover, keeping
// prev's order and putting t's rows last. prev is reordered to t's columns.
func (t Table) Merge(prev Table) (Table, error) {
	if t.Key == "" {
		return Table{}, fmt.Errorf("table %s: merge needs a key column", t.Name)
	}
	if len(prev.Columns) == 0 {
		return t, nil
	}
	prev.Name = t.Name
	prev, err := prev.Reorder(t.Columns)
	if err != nil {
		return Table{}, err
	}
	scope, err := t.KeyScope()
	if err != nil {
		return Table{}, err
	}
	k, err := t.Column(t.Key)
	if err != nil {
		return Table{}, err
	}

	covered := make(map[string]bool, len(scope))
	for _, v := range scope {
		covered[v] = true
	}
	out := t
	out.Rows = nil
	for _, row := range prev.Rows {
		if !covered[row[k]] {
			out.Rows = append(out.Rows, row)
		}
	}
	out.Rows = append(out.Rows, t.Rows...)
	return out, nil
}

// Multi writes every table to all of its sinks
type Multi []Sink

// Write fans out to each sink and joins their errors
func (m Multi) Write(ctx context.Context, t Table) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
