package frame

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrNoYearColumns is returned by WideToLong when no column name is a year
var ErrNoYearColumns = errors.New("no year columns")

// IsYear reports whether a column name is made only of ASCII digits
func IsYear(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WideToLong unpivots year columns into rows.
//
// Columns whose names are all digits are value columns; every other column is
// carried as an identifier. The output holds the identifiers, varName (int)
// and valueName (string), ordered by value column first and source row second.
func WideToLong(df dataframe.DataFrame, varName, valueName string) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df.Err
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, ErrEmpty
	}

	records := df.Records()
	header := records[0]

	var idIdx, valIdx []int
	for i, name := range header {
		if IsYear(name) {
			valIdx = append(valIdx, i)
			continue
		}
		if name == varName || name == valueName {
			return dataframe.DataFrame{}, fmt.Errorf("identifier column %q collides with output column", name)
		}
		idIdx = append(idIdx, i)
	}
	if len(valIdx) == 0 {
		return dataframe.DataFrame{}, ErrNoYearColumns
	}

	outHeader := make([]string, 0, len(idIdx)+2)
	for _, i := range idIdx {
		outHeader = append(outHeader, header[i])
	}
	outHeader = append(outHeader, varName, valueName)

	out := make([][]string, 0, 1+len(valIdx)*(len(records)-1))
	out = append(out, outHeader)
	for _, v := range valIdx {
		for _, row := range records[1:] {
			rec := make([]string, 0, len(outHeader))
			for _, i := range idIdx {
				rec = append(rec, row[i])
			}
			rec = append(rec, header[v], row[v])
			out = append(out, rec)
		}
	}

	return load(out, map[string]series.Type{varName: series.Int})
}
