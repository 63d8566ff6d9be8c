package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func testDates() []time.Time {
	return []time.Time{d("2020-01-02"), d("2020-01-03"), d("2020-01-06"), d("2020-01-07"), d("2020-01-08")}
}

func TestNewFrameAllMissing(t *testing.T) {
	t.Parallel()
	f := NewFrame(testDates(), []string{"1", "2", "3"})
	rows, cols := f.Shape()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 3, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.True(t, IsMissing(f.At(r, c)), "cell %d,%d", r, c)
		}
	}
}

func TestSetColumnAlignsByDate(t *testing.T) {
	t.Parallel()
	f := NewFrame(testDates(), []string{"1", "2"})
	s := Series{
		{Date: d("2020-01-08"), Value: 1.3},
		{Date: d("2020-01-02"), Value: 1.0},
		{Date: d("2020-01-03"), Value: 1.1},
		{Date: d("2019-12-31"), Value: 9.9}, // outside index, dropped
	}
	require.NoError(t, f.SetColumn("1", s))

	col, err := f.Column("1")
	require.NoError(t, err)
	require.Len(t, col, 5)
	assert.Equal(t, 1.0, col[0].Value)
	assert.Equal(t, 1.1, col[1].Value)
	assert.True(t, IsMissing(col[2].Value))
	assert.True(t, IsMissing(col[3].Value))
	assert.Equal(t, 1.3, col[4].Value)

	assert.True(t, f.ColumnFilled("1"))
	assert.False(t, f.ColumnFilled("2"))
}

func TestSetColumnUnknown(t *testing.T) {
	t.Parallel()
	f := NewFrame(testDates(), []string{"1"})
	err := f.SetColumn("7", nil)
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	_, err = f.Column("7")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestValueAndLast(t *testing.T) {
	t.Parallel()
	f := NewFrame(testDates(), []string{"a"})
	f.Set(1, 0, 2.5)
	f.Set(3, 0, 3.5)

	v, ok := f.Value(d("2020-01-03"), "a")
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	v, ok = f.Value(d("2020-01-02"), "a")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))

	_, ok = f.Value(d("2021-01-01"), "a")
	assert.False(t, ok)

	last, ok := f.Last("a")
	require.True(t, ok)
	assert.Equal(t, 3.5, last.Value)
	assert.True(t, last.Date.Equal(d("2020-01-07")))
}

func TestFrameEqual(t *testing.T) {
	t.Parallel()
	a := NewFrame(testDates(), []string{"1", "2"})
	b := NewFrame(testDates(), []string{"1", "2"})
	assert.True(t, a.Equal(b))

	a.Set(0, 0, 1)
	assert.False(t, a.Equal(b))
	b.Set(0, 0, 1)
	assert.True(t, a.Equal(b))

	c := NewFrame(testDates(), []string{"1", "3"})
	assert.False(t, a.Equal(c))
}

func TestIndexIsNormalized(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("CST", 8*3600)
	f := NewFrame([]time.Time{time.Date(2020, 1, 2, 15, 0, 0, 0, loc)}, []string{"x"})
	require.NoError(t, f.SetColumn("x", Series{{Date: d("2020-01-02"), Value: 4}}))
	v, ok := f.Value(d("2020-01-02"), "x")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
}
