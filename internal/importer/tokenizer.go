package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyFile is returned when an upload has no header row.
var ErrEmptyFile = errors.New("empty file: no header row found")

// Table is a parsed upload: the header row and the data rows beneath it.
type Table struct {
	Header []string
	Rows   [][]string

	// Bytes is the size of the raw input that was read.
	Bytes int64
}

// Tokenize reads comma-separated text into a Table.
//
// A leading BOM is dropped and invalid UTF-8 is repaired. Input is split
// into lines first, so a stray or unterminated quote only affects its own
// line. Within a line, quoted fields may contain commas and "" escapes.
// Every field is trimmed. Blank lines and rows holding a single empty field
// are skipped.
func Tokenize(r io.Reader) (Table, error) {
	clean, counter := wrapForParsing(r)
	br := bufio.NewReader(clean)

	var records [][]string
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return Table{}, fmt.Errorf("invalid csv: %w", err)
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if strings.TrimSpace(line) != "" {
			if rec := splitLine(line); !isBlankRecord(rec) {
				records = append(records, rec)
			}
		}

		if err == io.EOF {
			break
		}
	}

	return newTable(records, counter.n)
}

// splitLine splits one line on commas outside quotes. A quote toggles
// quoting, "" inside quotes is a literal quote, and text after a closing
// quote stays part of the field.
func splitLine(line string) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			field.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}

	return append(fields, strings.TrimSpace(field.String()))
}

func newTable(records [][]string, size int64) (Table, error) {
	if len(records) == 0 {
		return Table{Bytes: size}, ErrEmptyFile
	}
	return Table{
		Header: records[0],
		Rows:   records[1:],
		Bytes:  size,
	}, nil
}

// isBlankRecord reports whether rec is a trailing blank line: no fields, or
// exactly one empty field.
func isBlankRecord(rec []string) bool {
	return len(rec) == 0 || len(rec) == 1 && rec[0] == ""
}
