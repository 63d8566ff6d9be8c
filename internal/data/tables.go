package data

import (
	"fmt"
	"path/filepath"

	"factor-backtest/internal/model"
)

// Bar holds daily quotes, one table per field; close is required and its
// columns define the security universe.
type Bar struct {
	FrameSet
	Close *model.Frame
}

func NewBar(path string) *Bar {
	return &Bar{FrameSet: newFrameSet(filepath.Join(path, "data", "bar"))}
}

func (b *Bar) Load() error {
	if err := b.FrameSet.Load("close"); err != nil {
		return fmt.Errorf("load bar: %w", err)
	}
	b.Close = b.Frames["close"]
	return nil
}

// Month holds month-end aggregated fields (market cap, turnover, returns).
type Month struct {
	FrameSet
}

func NewMonth(path string) *Month {
	return &Month{FrameSet: newFrameSet(filepath.Join(path, "data", "month"))}
}

func (m *Month) Load() error {
	if err := m.FrameSet.Load(); err != nil {
		return fmt.Errorf("load month: %w", err)
	}
	return nil
}

// Ttm holds trailing-twelve-month financial fields.
type Ttm struct {
	FrameSet
}

func NewTtm(path string) *Ttm {
	return &Ttm{FrameSet: newFrameSet(filepath.Join(path, "data", "ttm"))}
}

func (t *Ttm) Load() error {
	if err := t.FrameSet.Load(); err != nil {
		return fmt.Errorf("load ttm: %w", err)
	}
	return nil
}

// Quarter holds single-quarter financial fields.
type Quarter struct {
	FrameSet
}

func NewQuarter(path string) *Quarter {
	return &Quarter{FrameSet: newFrameSet(filepath.Join(path, "data", "quarter"))}
}

func (q *Quarter) Load() error {
	if err := q.FrameSet.Load(); err != nil {
		return fmt.Errorf("load quarter: %w", err)
	}
	return nil
}
