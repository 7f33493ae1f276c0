package extract

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// lexer splits CSV-like text into rows. Quoted fields may contain commas,
// newlines and doubled quotes. Caps are enforced while lexing so oversized
// input fails before the grid is fully built.
type lexer struct {
	maxRows    int
	maxColumns int

	rows  []domain.Row
	row   domain.Row
	field strings.Builder
}

func lex(text string, maxRows, maxColumns int) ([]domain.Row, error) {
	l := &lexer{maxRows: maxRows, maxColumns: maxColumns}

	inQuotes := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c != '"' {
				l.field.WriteByte(c)
				continue
			}
			if i+1 < len(text) && text[i+1] == '"' {
				l.field.WriteByte('"')
				i++
				continue
			}
			inQuotes = false
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			l.endField()
		case '\n':
			if err := l.endRow(); err != nil {
				return nil, err
			}
		default:
			l.field.WriteByte(c)
		}
	}

	// An unterminated quote runs to end of input; whatever was read is kept.
	if err := l.endRow(); err != nil {
		return nil, err
	}
	return l.rows, nil
}

func (l *lexer) endField() {
	l.row = append(l.row, l.field.String())
	l.field.Reset()
}

func (l *lexer) endRow() error {
	l.endField()
	row := trimTrailingEmpty(l.row)
	l.row = nil
	if len(row) == 0 {
		return nil
	}

	n := len(l.rows) + 1
	if len(row) > l.maxColumns {
		return fmt.Errorf("%w: row %d has %d columns, limit is %d", ErrTooManyColumns, n, len(row), l.maxColumns)
	}
	if n > l.maxRows {
		return fmt.Errorf("%w: input has more than %d rows", ErrTooManyRows, l.maxRows)
	}
	l.rows = append(l.rows, row)
	return nil
}

func trimTrailingEmpty(row domain.Row) domain.Row {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	if end == 0 {
		return nil
	}
	return row[:end]
}

// normalizeNewlines rewrites \r\n and lone \r as \n.
func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// cell returns row[i], or "" when the row is too short.
func cell(row domain.Row, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
