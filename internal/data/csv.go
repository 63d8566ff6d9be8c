package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"factor-backtest/internal/model"
)

var ErrMalformedCSV = errors.New("malformed csv")

// DefaultIndexLabel heads the date column of a table with no other columns.
const DefaultIndexLabel = "date"

// ReadFrameCSV reads a wide table: the first column is the date index and
// every other column is a labelled float column. Empty cells are missing.
func ReadFrameCSV(path string) (*model.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readFrame(f, path)
}

func readFrame(r io.Reader, name string) (*model.Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: empty file", ErrMalformedCSV, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, name, err)
	}
	columns := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		columns = append(columns, strings.TrimSpace(h))
	}

	var (
		dates []time.Time
		rows  [][]float64
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, name, err)
		}
		date, err := model.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedCSV, name, line, err)
		}
		vals := make([]float64, len(columns))
		for j, cell := range rec[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d column %q: %v", ErrMalformedCSV, name, line, columns[j], err)
			}
			vals[j] = v
		}
		dates = append(dates, date)
		rows = append(rows, vals)
	}

	frame := model.NewFrame(dates, columns)
	for i, row := range rows {
		for j, v := range row {
			frame.Set(i, j, v)
		}
	}
	return frame, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "na":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteFrameCSV writes f as a wide table with indexLabel as the header of
// the date column. The file is replaced atomically.
func WriteFrameCSV(path string, f *model.Frame, indexLabel string) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return writeFrame(w, f, indexLabel)
	})
}

// WriteFileAtomic writes through a temp file in the target directory and
// renames it over path, so readers never observe a half-written file.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeFrame(out io.Writer, f *model.Frame, indexLabel string) error {
	w := csv.NewWriter(out)

	columns := f.Columns()
	if indexLabel == "" && len(columns) == 0 {
		// a lone empty field is written as a blank line, which readers skip
		indexLabel = DefaultIndexLabel
	}
	header := append([]string{indexLabel}, columns...)
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(columns)+1)
	for r, date := range f.Index() {
		row[0] = model.FormatDate(date)
		for c := range columns {
			row[c+1] = fmtFloat(f.At(r, c))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// readTable returns the header and records of a narrow csv file, header
// names lower-cased and trimmed.
func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s: empty file", ErrMalformedCSV, path)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return header, records[1:], nil
}
