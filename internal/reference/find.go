package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNotFound is returned when no line matches
var ErrNotFound = errors.New("no matching line")

// FindInCSV returns the first record whose cells, joined by ",", match pattern
func FindInCSV(r io.Reader, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, pattern)
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if re.MatchString(strings.Join(record, ",")) {
			return record, nil
		}
	}
}
