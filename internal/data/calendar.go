package data

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"factor-backtest/internal/model"
)

var (
	ErrInvalidPeriod = errors.New("start date is after end date")
	ErrEmptyPeriod   = errors.New("no trading dates in period")
)

// Calendar is the exchange trading calendar.
type Calendar struct {
	File string

	// Dates holds every open day in the file, ascending.
	Dates []time.Time
	// AllDates is the trading date sequence of the run. It equals Dates
	// until SetPeriod narrows it.
	AllDates []time.Time
}

func NewCalendar(path string) *Calendar {
	return &Calendar{File: filepath.Join(path, "data", "calendar.csv")}
}

// Load reads calendar.csv. A date column is required; an optional is_open
// column marks closed days with 0/false.
func (c *Calendar) Load() error {
	header, records, err := readTable(c.File)
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	dateCol := lo.IndexOf(header, "date")
	if dateCol < 0 {
		dateCol = lo.IndexOf(header, "cal_date")
	}
	if dateCol < 0 {
		return fmt.Errorf("load calendar: %w: %s: no date column", ErrMalformedCSV, c.File)
	}
	openCol := lo.IndexOf(header, "is_open")

	seen := map[time.Time]struct{}{}
	dates := make([]time.Time, 0, len(records))
	for i, rec := range records {
		if openCol >= 0 && !isOpen(rec[openCol]) {
			continue
		}
		d, err := model.ParseDate(rec[dateCol])
		if err != nil {
			return fmt.Errorf("load calendar: %w: %s line %d: %v", ErrMalformedCSV, c.File, i+2, err)
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	c.Dates = dates
	c.AllDates = dates
	return nil
}

func isOpen(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "f", "n", "no":
		return false
	}
	return true
}

// SetPeriod restricts AllDates to the open days within [start, end].
func (c *Calendar) SetPeriod(start, end time.Time) error {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, model.FormatDate(start), model.FormatDate(end))
	}
	period := lo.Filter(c.Dates, func(d time.Time, _ int) bool {
		return !d.Before(start) && !d.After(end)
	})
	if len(period) == 0 {
		return fmt.Errorf("%w: [%s, %s]", ErrEmptyPeriod, model.FormatDate(start), model.FormatDate(end))
	}
	c.AllDates = period
	return nil
}
