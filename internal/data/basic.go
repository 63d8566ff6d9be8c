package data

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"factor-backtest/internal/model"
)

// Security is one row of the static reference table.
type Security struct {
	Code       string
	Name       string
	Industry   string
	ListDate   time.Time
	DelistDate time.Time // zero while still listed
}

// Basic is the security reference table.
type Basic struct {
	File       string
	Securities []Security

	byCode map[string]int
}

func NewBasic(path string) *Basic {
	return &Basic{File: filepath.Join(path, "data", "basic.csv")}
}

// Load reads basic.csv: code is required; name, industry, list_date and
// delist_date are optional.
func (b *Basic) Load() error {
	header, records, err := readTable(b.File)
	if err != nil {
		return fmt.Errorf("load basic: %w", err)
	}
	codeCol := lo.IndexOf(header, "code")
	if codeCol < 0 {
		return fmt.Errorf("load basic: %w: %s: no code column", ErrMalformedCSV, b.File)
	}
	nameCol := lo.IndexOf(header, "name")
	industryCol := lo.IndexOf(header, "industry")
	listCol := lo.IndexOf(header, "list_date")
	delistCol := lo.IndexOf(header, "delist_date")

	securities := make([]Security, 0, len(records))
	byCode := make(map[string]int, len(records))
	for i, rec := range records {
		s := Security{
			Code:     strings.TrimSpace(rec[codeCol]),
			Name:     field(rec, nameCol),
			Industry: field(rec, industryCol),
		}
		if s.Code == "" {
			continue
		}
		if s.ListDate, err = optionalDate(field(rec, listCol)); err != nil {
			return fmt.Errorf("load basic: %w: %s line %d: %v", ErrMalformedCSV, b.File, i+2, err)
		}
		if s.DelistDate, err = optionalDate(field(rec, delistCol)); err != nil {
			return fmt.Errorf("load basic: %w: %s line %d: %v", ErrMalformedCSV, b.File, i+2, err)
		}
		byCode[s.Code] = len(securities)
		securities = append(securities, s)
	}

	b.Securities = securities
	b.byCode = byCode
	return nil
}

func field(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(s)
}

func (b *Basic) Get(code string) (Security, bool) {
	i, ok := b.byCode[code]
	if !ok {
		return Security{}, false
	}
	return b.Securities[i], true
}

func (b *Basic) Codes() []string {
	return lo.Map(b.Securities, func(s Security, _ int) string { return s.Code })
}

// Listed reports whether code was trading on date.
func (b *Basic) Listed(code string, date time.Time) bool {
	s, ok := b.Get(code)
	if !ok {
		return false
	}
	date = model.Day(date)
	if !s.ListDate.IsZero() && date.Before(s.ListDate) {
		return false
	}
	if !s.DelistDate.IsZero() && !date.Before(s.DelistDate) {
		return false
	}
	return true
}
