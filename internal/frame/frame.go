// Package frame holds the DataFrame operations shared by the harmonizers.
//
// Every column is loaded as a string series with no NaN coercion, so values
// such as the ISO alpha-2 code "NA" (Namibia) survive intact. Numeric
// conversion happens explicitly at the end of each pipeline.
package frame

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// ErrEmpty is returned when a frame has no data rows
	ErrEmpty = errors.New("no data rows")
	// ErrHeaderNotFound is returned when the requested header row is absent
	ErrHeaderNotFound = errors.New("header row not found")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type readConfig struct {
	delimiter  rune
	headerCell string
}

// Option configures Read
type Option func(*readConfig)

// WithDelimiter sets the field delimiter (default ',')
func WithDelimiter(d rune) Option {
	return func(c *readConfig) {
		c.delimiter = d
	}
}

// WithHeaderCell makes Read skip title lines until the first row whose first
// cell equals name
func WithHeaderCell(name string) Option {
	return func(c *readConfig) {
		c.headerCell = name
	}
}

// Read parses CSV bytes into an all-string DataFrame
func Read(data []byte, opts ...Option) (dataframe.DataFrame, error) {
	cfg := readConfig{delimiter: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.Comma = cfg.delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv: %w", err)
	}

	return FromRecords(records, cfg.headerCell)
}

// FromRecords builds a DataFrame from raw rows. Blank rows are skipped and
// ragged rows are padded or cut to the header width.
func FromRecords(records [][]string, headerCell string) (dataframe.DataFrame, error) {
	start := 0
	if headerCell != "" {
		start = -1
		for i, rec := range records {
			if len(rec) > 0 && strings.TrimSpace(rec[0]) == headerCell {
				start = i
				break
			}
		}
		if start < 0 {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %q", ErrHeaderNotFound, headerCell)
		}
	}
	records = records[start:]
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrEmpty
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = normalizeHeader(name)
	}

	rows := [][]string{header}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, fit(rec, len(header)))
	}
	if len(rows) == 1 {
		return dataframe.DataFrame{}, ErrEmpty
	}

	return load(rows, nil)
}

func load(records [][]string, types map[string]series.Type) (dataframe.DataFrame, error) {
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return df, fmt.Errorf("load records: %w", df.Err)
	}
	return df, nil
}

// normalizeHeader trims a header and turns spreadsheet numbers such as
// "1980.0" back into year names
func normalizeHeader(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, ".") {
		if f, err := strconv.ParseFloat(name, 64); err == nil && f == float64(int64(f)) && f >= 0 {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return name
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func fit(rec []string, width int) []string {
	if len(rec) == width {
		return rec
	}
	out := make([]string, width)
	copy(out, rec)
	return out
}

// Strings returns a column as strings
func Strings(df dataframe.DataFrame, col string) ([]string, error) {
	s := df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("column %q: %w", col, s.Err)
	}
	return s.Records(), nil
}

// Match keeps rows where col equals value
func Match(df dataframe.DataFrame, col, value string) (dataframe.DataFrame, error) {
	out := df.Filter(dataframe.F{Colname: col, Comparator: series.Eq, Comparando: value})
	if out.Err != nil {
		return out, fmt.Errorf("filter %s == %q: %w", col, value, out.Err)
	}
	return out, nil
}

// Where keeps the rows whose element in col satisfies keep
func Where(df dataframe.DataFrame, col string, keep func(series.Element) bool) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df.Err
	}
	s := df.Col(col)
	if s.Err != nil {
		return df, fmt.Errorf("column %q: %w", col, s.Err)
	}
	if s.Len() == 0 {
		return df, nil
	}

	mask := make([]bool, s.Len())
	for i := range mask {
		mask[i] = keep(s.Elem(i))
	}

	out := df.Subset(mask)
	if out.Err != nil {
		return out, fmt.Errorf("subset on %q: %w", col, out.Err)
	}
	return out, nil
}

// Exclude drops rows whose col value is one of values
func Exclude(df dataframe.DataFrame, col string, values []string) (dataframe.DataFrame, error) {
	drop := make(map[string]bool, len(values))
	for _, v := range values {
		drop[v] = true
	}
	return Where(df, col, func(el series.Element) bool {
		return !drop[el.String()]
	})
}

// Present drops rows whose col value is missing (NaN after a join)
func Present(df dataframe.DataFrame, col string) (dataframe.DataFrame, error) {
	return Where(df, col, func(el series.Element) bool {
		return !el.IsNA()
	})
}

// Apply replaces col with f applied to every value
func Apply(df dataframe.DataFrame, col string, f func(string) string) (dataframe.DataFrame, error) {
	return Derive(df, col, col, f)
}

// Derive adds (or replaces) dst computed from src
func Derive(df dataframe.DataFrame, src, dst string, f func(string) string) (dataframe.DataFrame, error) {
	values, err := Strings(df, src)
	if err != nil {
		return df, err
	}
	for i, v := range values {
		values[i] = f(v)
	}
	out := df.Mutate(series.New(values, series.String, dst))
	if out.Err != nil {
		return out, fmt.Errorf("mutate %q: %w", dst, out.Err)
	}
	return out, nil
}

// Strip trims surrounding white space of every value in col
func Strip(df dataframe.DataFrame, col string) (dataframe.DataFrame, error) {
	return Apply(df, col, strings.TrimSpace)
}

// Rename renames columns given as old -> new pairs
func Rename(df dataframe.DataFrame, renames map[string]string) (dataframe.DataFrame, error) {
	for oldName, newName := range renames {
		df = df.Rename(newName, oldName)
		if df.Err != nil {
			return df, fmt.Errorf("rename %q: %w", oldName, df.Err)
		}
	}
	return df, nil
}

// Require checks that every column exists
func Require(df dataframe.DataFrame, cols ...string) error {
	have := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		have[name] = true
	}
	for _, c := range cols {
		if !have[c] {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

// Select keeps the given columns in order
func Select(df dataframe.DataFrame, cols ...string) (dataframe.DataFrame, error) {
	out := df.Select(cols)
	if out.Err != nil {
		return out, fmt.Errorf("select %v: %w", cols, out.Err)
	}
	return out, nil
}

// LeftJoin joins right onto left by key, keeping every left row
func LeftJoin(left, right dataframe.DataFrame, key string) (dataframe.DataFrame, error) {
	out := left.LeftJoin(right, key)
	if out.Err != nil {
		return out, fmt.Errorf("left join on %q: %w", key, out.Err)
	}
	return out, nil
}

// Sort orders rows by one or two columns, ascending. gota's Arrange
// misorders three or more keys.
func Sort(df dataframe.DataFrame, cols ...string) (dataframe.DataFrame, error) {
	if len(cols) == 0 || len(cols) > 2 {
		return df, fmt.Errorf("sort by %v: need one or two columns", cols)
	}
	if df.Nrow() == 0 {
		return df, nil
	}
	order := make([]dataframe.Order, len(cols))
	for i, c := range cols {
		order[i] = dataframe.Sort(c)
	}
	out := df.Arrange(order...)
	if out.Err != nil {
		return out, fmt.Errorf("sort by %v: %w", cols, out.Err)
	}
	return out, nil
}
