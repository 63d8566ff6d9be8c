package model

import (
	"math"
	"time"
)

// Missing returns the sentinel used for an absent cell.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Point is one dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a date-indexed sequence of values, e.g. a group's cumulative
// net value. Order is not significant for alignment; duplicate dates keep
// the last value.
type Series []Point

// ByDate indexes the series by normalized date.
func (s Series) ByDate() map[time.Time]float64 {
	out := make(map[time.Time]float64, len(s))
	for _, p := range s {
		out[Day(p.Date)] = p.Value
	}
	return out
}

// Reindex aligns s onto dates: values for dates not in s are missing and
// points of s outside dates are dropped.
func (s Series) Reindex(dates []time.Time) Series {
	byDate := s.ByDate()
	out := make(Series, len(dates))
	for i, d := range dates {
		v, ok := byDate[Day(d)]
		if !ok {
			v = Missing()
		}
		out[i] = Point{Date: d, Value: v}
	}
	return out
}

// Values returns just the values, in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}
