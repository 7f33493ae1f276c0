package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/cbc-history-etl/internal/extract"
)

// ErrEmptyWorkbook is returned for a workbook without sheets.
var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// XLSXToCSV renders the first sheet of an .xlsx workbook as CSV text with the
// same grid the website's CSV download would produce. maxRows > 0 stops
// reading early with extract.ErrTooManyRows; blank rows do not count toward
// it, matching the CSV lexer.
func XLSXToCSV(data []byte, maxRows int) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrEmptyWorkbook
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	line, n := 0, 0
	for rows.Next() {
		line++
		cols, err := rows.Columns()
		if err != nil {
			return "", fmt.Errorf("read row %d of sheet %q: %w", line, sheet, err)
		}
		if !blankRow(cols) {
			n++
		}
		if maxRows > 0 && n > maxRows {
			return "", fmt.Errorf("%w: sheet %q has more than %d rows", extract.ErrTooManyRows, sheet, maxRows)
		}
		if err := w.Write(cols); err != nil {
			return "", fmt.Errorf("write row %d: %w", line, err)
		}
	}
	if err := rows.Error(); err != nil {
		return "", fmt.Errorf("iterate sheet %q: %w", sheet, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

func blankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
