package frame

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// oleMagic starts every BIFF (.xls) compound document
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ReadExcel reads the first sheet of a workbook. ext selects the format
// (".xls" or ".xlsx"). Some portals serve tab-separated text under a .xls
// name; such files are read as TSV.
func ReadExcel(data []byte, ext string, opts ...Option) (dataframe.DataFrame, error) {
	cfg := readConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		records [][]string
		err     error
	)
	switch ext {
	case ".xls":
		if !bytes.HasPrefix(data, oleMagic) {
			return Read(data, append(opts, WithDelimiter('\t'))...)
		}
		records, err = readXLS(data)
	case ".xlsx", ".xlsm":
		records, err = readXLSX(data)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported spreadsheet format %q (only .xls and .xlsx)", ext)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	return FromRecords(records, cfg.headerCell)
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("open xls: no Workbook stream")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("open xls: workbook has no sheets")
	}
	if sheet.MaxRow == 0 {
		return nil, ErrEmpty
	}

	// Row(i) dereferences missing rows, so blank lines are read through
	// ReadAllCells, capped at the first sheet's row count. Missing rows
	// come back nil.
	return wb.ReadAllCells(int(sheet.MaxRow) + 1), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open xlsx: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
