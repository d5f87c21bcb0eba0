// Package parser reads and writes the family file: one edge per line,
// owner,type,target, no header.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/starford/kinship/internal/models"
)

const fieldsPerRecord = 3

// Skipped describes a record that could not be turned into a row.
type Skipped struct {
	Line   int
	Reason string
}

// Result holds the output of parsing a family file.
type Result struct {
	Rows    []models.Row
	Skipped []Skipped
}

// maxRecordLines bounds how many physical lines one quoted record may span.
const maxRecordLines = 32

// Parse decodes raw file content line by line. Each non-blank line is read as
// a CSV record; a line that opens a quoted field may continue over the next
// lines. A line that is not valid CSV is taken as a legacy record, where
// quotes are ordinary characters and the line is split on commas. Records
// that still do not have exactly three fields are reported in Result.Skipped
// with their line number instead of failing the whole file.
func Parse(data []byte) (*Result, error) {
	lines := strings.Split(string(data), "\n")
	res := &Result{}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if line == "" {
			continue
		}
		if rec, ok := readRecord(line); ok {
			res.Rows = append(res.Rows, toRow(rec))
			continue
		}
		if rec, n, ok := readQuotedRecord(lines[i:]); ok {
			res.Rows = append(res.Rows, toRow(rec))
			i += n - 1
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) == fieldsPerRecord {
			res.Rows = append(res.Rows, toRow(fields))
			continue
		}
		res.Skipped = append(res.Skipped, Skipped{
			Line:   i + 1,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldsPerRecord, len(fields)),
		})
	}
	return res, nil
}

// readRecord reports whether text is exactly one well-formed CSV record of
// three fields.
func readRecord(text string) ([]string, bool) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil || len(rec) != fieldsPerRecord {
		return nil, false
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return rec, true
}

// readQuotedRecord joins the first line with the following ones until they
// form one record, for quoted fields that contain line breaks. It returns the
// number of lines consumed.
func readQuotedRecord(lines []string) ([]string, int, bool) {
	if !strings.Contains(lines[0], `"`) {
		return nil, 0, false
	}
	for n := 2; n <= len(lines) && n <= maxRecordLines; n++ {
		if rec, ok := readRecord(strings.Join(lines[:n], "\n")); ok {
			return rec, n, true
		}
	}
	return nil, 0, false
}

func toRow(rec []string) models.Row {
	return models.Row{Owner: rec[0], Type: rec[1], Target: rec[2]}
}

// Format encodes rows in order. Fields that contain a comma, quote or line
// break are quoted; everything else is written verbatim, so files of plain
// names stay readable by older tools.
func Format(rows []models.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write([]string{row.Owner, row.Type, row.Target}); err != nil {
			return nil, fmt.Errorf("parser: write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("parser: flush: %w", err)
	}
	return buf.Bytes(), nil
}
