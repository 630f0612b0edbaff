// Package export serializes response records as CSV.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/pavelanni/survey/internal/model"
)

const (
	// FileName is the download name of the export.
	FileName = "survey_responses.csv"
	// ContentType is the MIME type of the export.
	ContentType = "text/csv"
)

var bom = []byte("\ufeff")

// Columns returns the header for records: every column of base or of any
// record, in canonical order. Records that lack a column get an empty cell.
func Columns(base []string, records []model.Response) []string {
	seen := make(map[string]bool)
	for _, c := range base {
		seen[c] = true
	}
	for _, r := range records {
		for _, f := range r.Fields() {
			seen[f.Name] = true
		}
	}
	var cols []string
	for _, c := range model.AllColumns() {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// WriteCSV writes a UTF-8 byte-order mark followed by the header row and one
// row per record.
func WriteCSV(w io.Writer, base []string, records []model.Response) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("write byte-order mark: %w", err)
	}
	return writeRows(w, base, records)
}

// Table renders records as CSV text without the byte-order mark.
func Table(base []string, records []model.Response) (string, error) {
	var buf bytes.Buffer
	if err := writeRows(&buf, base, records); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeRows(w io.Writer, base []string, records []model.Response) error {
	cols := Columns(base, records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(cols))
	for i, r := range records {
		for j, c := range cols {
			row[j], _ = r.Value(c)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ErrNoHeader is returned by ReadCSV for input without a header row.
var ErrNoHeader = errors.New("csv has no header row")

// Parsed is an export read back. Multi-value answers come back as their
// joined text; use model.Split to recover the options.
type Parsed struct {
	Header []string
	Rows   [][]model.Field
}

// Column returns the values of col across all rows.
func (p Parsed) Column(col string) []string {
	idx := slices.Index(p.Header, col)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(p.Rows))
	for _, row := range p.Rows {
		out = append(out, row[idx].Value)
	}
	return out
}

// ReadCSV parses an export, with or without the byte-order mark.
func ReadCSV(r io.Reader) (Parsed, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Parsed{}, ErrNoHeader
	}
	if err != nil {
		return Parsed{}, fmt.Errorf("read header: %w", err)
	}

	p := Parsed{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Parsed{}, fmt.Errorf("read row %d: %w", len(p.Rows), err)
		}
		row := make([]model.Field, len(header))
		for i, name := range header {
			row[i] = model.Field{Name: name, Value: rec[i]}
		}
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}
