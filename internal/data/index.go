package data

import (
	"fmt"
	"path/filepath"

	"factor-backtest/internal/model"
)

// Index holds benchmark index closes, one column per index code.
type Index struct {
	File  string
	Close *model.Frame
}

func NewIndex(path string) *Index {
	return &Index{File: filepath.Join(path, "data", "index.csv")}
}

func (i *Index) Load() error {
	f, err := ReadFrameCSV(i.File)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	i.Close = f
	return nil
}

// Series returns the close series for one index code.
func (i *Index) Series(code string) (model.Series, error) {
	if i.Close == nil {
		return nil, fmt.Errorf("index %q: not loaded", code)
	}
	return i.Close.Column(code)
}
