package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/grant-triage/internal/logger"
)

// ErrInputNotFound is returned when the input file does not exist or cannot be opened.
var ErrInputNotFound = errors.New("input not found")

// ErrMalformed is returned when the input cannot be parsed as a delimited table.
var ErrMalformed = errors.New("malformed table")

// Table is a header plus rows of string cells. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// DelimiterFor picks tab for .tsv/.tab paths and comma otherwise.
func DelimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// Read loads a delimited file, choosing the delimiter from the extension.
func Read(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, path, err)
	}
	t, err := Parse(bytes.NewReader(data), DelimiterFor(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return t, nil
}

// Parse reads a delimited table with a header row. A UTF-8 BOM is stripped,
// short rows are padded and long rows are truncated to the header width.
// Truncating non-blank cells logs a warning naming the data record.
func Parse(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty file: no header row")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Header: header, Rows: make([][]string, 0, len(records)-1)}
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) && !isBlank(rec[len(header):]) {
			logger.Warn("row has more cells than the header; extra cells dropped", logger.Fields{
				"record":  i + 1,
				"header":  len(header),
				"cells":   len(rec),
				"dropped": strings.Join(rec[len(header):], "|"),
			})
		}
		t.Rows = append(t.Rows, fit(rec, len(header)))
	}
	return t, nil
}

// Write encodes the table with the given delimiter.
func Write(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes t to path, creating parent directories and choosing the
// delimiter from the extension.
func WriteFile(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := Write(&buf, t, DelimiterFor(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Index returns the column position of name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// AddColumn appends a column filled with value. Existing columns are left untouched.
func (t *Table) AddColumn(name, value string) {
	if t.Has(name) {
		return
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// Rename changes a column name in place.
func (t *Table) Rename(from, to string) {
	if i := t.Index(from); i >= 0 {
		t.Header[i] = to
	}
}

// Reorder returns a new table whose columns follow order. Columns missing
// from order keep their relative position after the listed ones.
func (t *Table) Reorder(order []string) *Table {
	idx := make([]int, 0, len(t.Header))
	used := make(map[int]bool)
	for _, name := range order {
		if i := t.Index(name); i >= 0 && !used[i] {
			idx = append(idx, i)
			used[i] = true
		}
	}
	for i := range t.Header {
		if !used[i] {
			idx = append(idx, i)
		}
	}

	out := &Table{Header: make([]string, len(idx)), Rows: make([][]string, len(t.Rows))}
	for j, i := range idx {
		out.Header[j] = t.Header[i]
	}
	for r, row := range t.Rows {
		nr := make([]string, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

// Get returns the cell of row r in column name, or "" when the column is absent.
func (t *Table) Get(r int, name string) string {
	i := t.Index(name)
	if i < 0 || r < 0 || r >= len(t.Rows) || i >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][i]
}

func fit(rec []string, n int) []string {
	if len(rec) == n {
		return rec
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
