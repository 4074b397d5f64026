package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook reads the first sheet of an .xlsx workbook into a Table.
// Cells are trimmed and blank rows are skipped, as for CSV.
func ReadWorkbook(r io.Reader) (Table, error) {
	counter := &countingReader{r: r}

	f, err := excelize.OpenReader(counter)
	if err != nil {
		return Table{}, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{Bytes: counter.n}, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("invalid workbook: read sheet %q: %w", sheets[0], err)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		trimRecord(row)
		if isEmptyRow(row) {
			continue
		}
		records = append(records, row)
	}

	return newTable(records, counter.n)
}

// isEmptyRow reports whether every cell of row is empty. Spreadsheets keep
// formatted but empty rows, which CSV exports would have dropped.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// Parse reads an upload as a workbook or as CSV depending on its name.
func Parse(fileName string, r io.Reader) (Table, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(r)
	default:
		return Tokenize(r)
	}
}

func trimRecord(rec []string) {
	for i, v := range rec {
		rec[i] = strings.TrimSpace(v)
	}
}
