package seaice

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ConversionError reports a cell that could not be read as a number.
// Row is the 0-based data row index after the units row is dropped.
type ConversionError struct {
	Column string
	Row    int
	Value  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("unable to parse %q at row %d of column %q as a number", e.Value, e.Row, e.Column)
}

var ErrMissingUnitsRow = errors.New("csv has no units row to drop")

var utf8BOM = []byte("\ufeff")

// missingMarkers are the cell values read as missing.
var missingMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

type series struct {
	values  []float64
	integer bool
}

// Frame is a small column-addressable view of a CSV table. Cells are kept as
// text until Coerce converts a column to numbers.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
	numeric map[string]*series
}

// ReadFrame parses r with the first line as header, drops the first data row
// and normalizes column names to trimmed lower case. A leading UTF-8 byte
// order mark is skipped.
func ReadFrame(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}
	if len(records) < 2 {
		return nil, ErrMissingUnitsRow
	}

	header := records[0]
	f := &Frame{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
		numeric: make(map[string]*series),
	}
	for i, name := range header {
		name = normalizeColumn(name)
		f.columns[i] = name
		if _, dup := f.index[name]; !dup {
			f.index[name] = i
		}
	}

	// line 2 holds units, not observations
	for i, rec := range records[2:] {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i, len(header), len(rec))
		}
		f.rows = append(f.rows, rec)
	}

	return f, nil
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

func (f *Frame) Len() int {
	return len(f.rows)
}

func (f *Frame) cell(row, col int) string {
	if col >= len(f.rows[row]) {
		return ""
	}
	return f.rows[row][col]
}

// Coerce converts each named column to numbers. A column stays integer when
// every cell is an integer; otherwise it becomes float. Empty cells and the
// usual NA markers (NA, N/A, null, NaN, ...) are missing values and force the
// column to float. Only plain decimal numbers are accepted, so hex, inf and
// digit separators are conversion errors.
func (f *Frame) Coerce(columns ...string) error {
	for _, name := range columns {
		col, ok := f.index[name]
		if !ok {
			return fmt.Errorf("column %q not found", name)
		}

		s := &series{values: make([]float64, len(f.rows)), integer: true}
		for row := range f.rows {
			raw := strings.TrimSpace(f.cell(row, col))
			if _, missing := missingMarkers[raw]; missing {
				s.values[row] = math.NaN()
				s.integer = false
				continue
			}
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				s.values[row] = float64(n)
				continue
			}
			if !isDecimal(raw) {
				return &ConversionError{Column: name, Row: row, Value: raw}
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return &ConversionError{Column: name, Row: row, Value: raw}
			}
			s.values[row] = v
			s.integer = false
		}
		f.numeric[name] = s
	}
	return nil
}

// WriteCSV writes the named columns, header first, with floats at two
// decimals and no index column.
func (f *Frame) WriteCSV(w io.Writer, columns ...string) error {
	cols := make([]int, len(columns))
	for i, name := range columns {
		col, ok := f.index[name]
		if !ok {
			return fmt.Errorf("column %q not found", name)
		}
		cols[i] = col
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}

	record := make([]string, len(columns))
	for row := range f.rows {
		for i, name := range columns {
			record[i] = f.format(name, row, cols[i])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (f *Frame) format(name string, row, col int) string {
	s, ok := f.numeric[name]
	if !ok {
		return f.cell(row, col)
	}
	v := s.values[row]
	switch {
	case math.IsNaN(v):
		return ""
	case s.integer:
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

// Float returns the numeric value at row of a coerced column.
func (f *Frame) Float(name string, row int) (float64, error) {
	s, ok := f.numeric[name]
	if !ok {
		return 0, fmt.Errorf("column %q is not numeric", name)
	}
	return s.values[row], nil
}

// isDecimal reports whether s is a sign, digits with at most one decimal
// point, and an optional exponent.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for ; i < len(s) && isDigit(s[i]); i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
