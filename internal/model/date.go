package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical on-disk date format for every table we write.
const DateLayout = "2006-01-02"

// compactDateLayout is accepted on input; vendor A-share dumps use it.
const compactDateLayout = "20060102"

// Day truncates t to midnight UTC so dates can be used as map keys.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "2006-01-02" or "20060102".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := DateLayout
	if len(s) == len(compactDateLayout) && !strings.Contains(s, "-") {
		layout = compactDateLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
