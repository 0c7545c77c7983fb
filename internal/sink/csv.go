package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVSink writes each table to {dir}/{name}.csv
type CSVSink struct {
	dir string
}

// NewCSVSink creates a sink rooted at dir. The directory is created on first write.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: filepath.Clean(dir)}
}

// Path returns the file a table is written to
func (s *CSVSink) Path(table string) string {
	return filepath.Join(s.dir, table+".csv")
}

// Write replaces the table file with the header and all rows
func (s *CSVSink) Write(ctx context.Context, t Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := s.Path(t.Name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Read loads a table file written by Write. A missing file returns an
// error matching os.ErrNotExist.
func (s *CSVSink) Read(table string) (Table, error) {
	path := s.Path(table)
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return Table{Name: table}, nil
	}
	return Table{Name: table, Columns: records[0], Rows: records[1:]}, nil
}

// Append adds one record to the table file. The header is written only when
// the file is new or empty. Keys of record must be exactly columns.
func (s *CSVSink) Append(table string, columns []string, record map[string]string) error {
	if len(record) != len(columns) {
		return fmt.Errorf("append %s: record has %d fields, want %d", table, len(record), len(columns))
	}
	row := make([]string, len(columns))
	for i, c := range columns {
		v, ok := record[c]
		if !ok {
			return fmt.Errorf("append %s: missing field %q", table, c)
		}
		row[i] = v
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := s.Path(table)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(columns); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
