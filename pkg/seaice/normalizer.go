// Package seaice turns the NSIDC daily sea-ice extent CSVs into the compact
// year,month,day,extent files used by the charts.
package seaice

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/xhad/chartdata/internal/models"
)

var (
	// NumericColumns must all be numeric for a file to be accepted.
	NumericColumns = []string{"year", "month", "day", "extent", "missing"}
	OutputColumns  = []string{"year", "month", "day", "extent"}
)

// Normalize reads a raw extent CSV from r and writes the normalized table to
// w. Nothing is written when parsing or coercion fails.
func Normalize(r io.Reader, w io.Writer) (*Frame, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if err := frame.Coerce(NumericColumns...); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := frame.WriteCSV(&buf, OutputColumns...); err != nil {
		return nil, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return nil, err
	}
	return frame, nil
}

// NormalizeFile normalizes src into dst, overwriting dst. dst is only
// created once the whole table has been converted.
func NormalizeFile(src, dst string) (*Frame, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var buf bytes.Buffer
	frame, err := Normalize(in, &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return frame, nil
}

// Rows returns the normalized observations. Rows with a missing date part
// are rejected.
func (f *Frame) Rows() ([]models.ExtentRow, error) {
	rows := make([]models.ExtentRow, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		var vals [4]float64
		for j, name := range OutputColumns {
			v, err := f.Float(name, i)
			if err != nil {
				return nil, err
			}
			if j < 3 && math.IsNaN(v) {
				return nil, fmt.Errorf("row %d: missing %s", i, name)
			}
			vals[j] = v
		}
		rows = append(rows, models.ExtentRow{
			Year:   int(vals[0]),
			Month:  int(vals[1]),
			Day:    int(vals[2]),
			Extent: vals[3],
		})
	}
	return rows, nil
}
