package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrShapeMismatch = errors.New("frame shape mismatch")
)

// Frame is a dense date x column table of float64 values. Rows are indexed
// by trading date and columns by label (security code, group number, index
// code). Missing cells hold NaN.
//
// Frame is not safe for concurrent writes; owners serialize access.
type Frame struct {
	index   []time.Time
	columns []string
	cells   []float64 // row-major, len(index)*len(columns)

	rowPos map[time.Time]int
	colPos map[string]int
}

// NewFrame allocates a frame with every cell missing.
func NewFrame(index []time.Time, columns []string) *Frame {
	f := &Frame{
		index:   make([]time.Time, len(index)),
		columns: make([]string, len(columns)),
		cells:   make([]float64, len(index)*len(columns)),
		rowPos:  make(map[time.Time]int, len(index)),
		colPos:  make(map[string]int, len(columns)),
	}
	for i, d := range index {
		d = Day(d)
		f.index[i] = d
		f.rowPos[d] = i
	}
	for j, c := range columns {
		f.columns[j] = c
		f.colPos[c] = j
	}
	nan := math.NaN()
	for i := range f.cells {
		f.cells[i] = nan
	}
	return f
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) { return len(f.index), len(f.columns) }

// Index returns a copy of the row dates.
func (f *Frame) Index() []time.Time {
	out := make([]time.Time, len(f.index))
	copy(out, f.index)
	return out
}

// Columns returns a copy of the column labels.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.colPos[name]
	return ok
}

func (f *Frame) At(row, col int) float64 {
	return f.cells[row*len(f.columns)+col]
}

func (f *Frame) Set(row, col int, v float64) {
	f.cells[row*len(f.columns)+col] = v
}

// Value looks a cell up by date and column label. ok is false when either
// key is unknown; a known but empty cell returns NaN and ok=true.
func (f *Frame) Value(date time.Time, col string) (float64, bool) {
	r, ok := f.rowPos[Day(date)]
	if !ok {
		return math.NaN(), false
	}
	c, ok := f.colPos[col]
	if !ok {
		return math.NaN(), false
	}
	return f.At(r, c), true
}

// Column returns the named column as a series over the full index.
func (f *Frame) Column(name string) (Series, error) {
	c, ok := f.colPos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make(Series, len(f.index))
	for r, d := range f.index {
		out[r] = Point{Date: d, Value: f.At(r, c)}
	}
	return out, nil
}

// SetColumn overwrites the named column with s aligned on the frame index.
// Dates of s outside the index are dropped; index dates absent from s
// become missing.
func (f *Frame) SetColumn(name string, s Series) error {
	c, ok := f.colPos[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	byDate := s.ByDate()
	for r, d := range f.index {
		v, ok := byDate[d]
		if !ok {
			v = math.NaN()
		}
		f.Set(r, c, v)
	}
	return nil
}

// ColumnFilled reports whether the column holds at least one value.
func (f *Frame) ColumnFilled(name string) bool {
	c, ok := f.colPos[name]
	if !ok {
		return false
	}
	for r := range f.index {
		if !math.IsNaN(f.At(r, c)) {
			return true
		}
	}
	return false
}

// Last returns the last non-missing value of a column and its date.
func (f *Frame) Last(name string) (Point, bool) {
	c, ok := f.colPos[name]
	if !ok {
		return Point{}, false
	}
	for r := len(f.index) - 1; r >= 0; r-- {
		if v := f.At(r, c); !math.IsNaN(v) {
			return Point{Date: f.index[r], Value: v}, true
		}
	}
	return Point{}, false
}

// Equal compares index, columns and cells; missing equals missing.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if len(f.index) != len(o.index) || len(f.columns) != len(o.columns) {
		return false
	}
	for i := range f.index {
		if !f.index[i].Equal(o.index[i]) {
			return false
		}
	}
	for j := range f.columns {
		if f.columns[j] != o.columns[j] {
			return false
		}
	}
	for i := range f.cells {
		a, b := f.cells[i], o.cells[i]
		if math.IsNaN(a) && math.IsNaN(b) {
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}
