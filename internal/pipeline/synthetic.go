package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

// Synthetic describes a generated dataset: random-walk prices for a set
// of stocks plus group results built by bucketing the stocks on market
// cap.
type Synthetic struct {
	Start  time.Time
	End    time.Time
	Stocks int
	Groups int
	Bench  string
	Fee    decimal.Decimal
	Seed   int64
}

var errTooFewStocks = errors.New("fewer stocks than groups")

// WriteSynthetic writes a complete dataset and the group result files
// under path.
func WriteSynthetic(path string, s Synthetic) error {
	if s.Groups < 1 || s.Stocks < s.Groups {
		return fmt.Errorf("%w: %d stocks, %d groups", errTooFewStocks, s.Stocks, s.Groups)
	}
	rnd := rand.New(rand.NewSource(s.Seed))

	days := calendarDays(s.Start, s.End)
	open := make([]time.Time, 0, len(days))
	for _, d := range days {
		if isWeekday(d) {
			open = append(open, d)
		}
	}
	if len(open) < 2 {
		return fmt.Errorf("synthetic period %s..%s: %w", model.FormatDate(s.Start), model.FormatDate(s.End), data.ErrEmptyPeriod)
	}

	codes := make([]string, s.Stocks)
	shares := make([]float64, s.Stocks)
	for i := range codes {
		codes[i] = fmt.Sprintf("%06d.SZ", i+1)
		shares[i] = float64(1+rnd.Intn(100)) * 1e7
	}

	closes := model.NewFrame(open, codes)
	volume := model.NewFrame(open, codes)
	for j := range codes {
		price := 5 + rnd.Float64()*45
		drift := rnd.NormFloat64() * 0.0005
		for i := range open {
			if i > 0 {
				price *= 1 + drift + rnd.NormFloat64()*0.02
			}
			closes.Set(i, j, round(price, 2))
			volume.Set(i, j, float64(rnd.Intn(5e6)+1e5))
		}
	}

	index := model.NewFrame(open, []string{s.Bench})
	level := 4000.0
	for i := range open {
		if i > 0 {
			level *= 1 + meanReturn(closes, i, allColumns(s.Stocks))
		}
		index.Set(i, 0, round(level, 2))
	}

	monthEnds, quarterEnds := periodEnds(open)
	mktCap := model.NewFrame(monthEnds, codes)
	for r, d := range monthEnds {
		for j := range codes {
			v, _ := closes.Value(d, codes[j])
			mktCap.Set(r, j, round(v*shares[j]/1e4, 2))
		}
	}
	roe := model.NewFrame(quarterEnds, codes)
	revenue := model.NewFrame(quarterEnds, codes)
	for r := range quarterEnds {
		for j := range codes {
			roe.Set(r, j, round(0.02+rnd.Float64()*0.2, 4))
			revenue.Set(r, j, round(shares[j]*(0.5+rnd.Float64()), 0))
		}
	}

	tables := []struct {
		rel string
		f   *model.Frame
	}{
		{"data/bar/close.csv", closes},
		{"data/bar/volume.csv", volume},
		{"data/month/mkt_cap.csv", mktCap},
		{"data/ttm/roe.csv", roe},
		{"data/quarter/revenue.csv", revenue},
		{"data/index.csv", index},
	}
	for _, t := range tables {
		if err := writeFrame(filepath.Join(path, t.rel), t.f); err != nil {
			return err
		}
	}
	if err := writeCalendar(filepath.Join(path, "data", "calendar.csv"), days); err != nil {
		return err
	}
	if err := writeBasic(filepath.Join(path, "data", "basic.csv"), codes, s.Start); err != nil {
		return err
	}

	fee := s.Fee.InexactFloat64()
	for n, bucket := range sizeBuckets(shares, closes, s.Groups) {
		g := &data.GroupResult{Group: n + 1}
		nv, hedge := 1-fee, 1-fee
		for i, d := range open {
			if i > 0 {
				r := meanReturn(closes, i, bucket)
				b := index.At(i, 0)/index.At(i-1, 0) - 1
				nv *= 1 + r
				hedge *= 1 + r - b
			}
			g.NV = append(g.NV, model.Point{Date: d, Value: round(nv, 6)})
			g.HedgeNV = append(g.HedgeNV, model.Point{Date: d, Value: round(hedge, 6)})
		}
		if err := data.WriteGroupResult(path, g); err != nil {
			return err
		}
	}
	return nil
}

func writeFrame(file string, f *model.Frame) error {
	if err := ensureDir(file); err != nil {
		return err
	}
	return data.WriteFrameCSV(file, f, "date")
}

func ensureDir(file string) error {
	return os.MkdirAll(filepath.Dir(file), 0o755)
}

func writeCalendar(file string, days []time.Time) error {
	return writeText(file, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "date,is_open"); err != nil {
			return err
		}
		for _, d := range days {
			open := 0
			if isWeekday(d) {
				open = 1
			}
			if _, err := fmt.Fprintf(w, "%s,%d\n", model.FormatDate(d), open); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeBasic(file string, codes []string, start time.Time) error {
	return writeText(file, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "code,name,industry,list_date"); err != nil {
			return err
		}
		industries := []string{"Bank", "Energy", "Tech", "Consumer"}
		for i, c := range codes {
			listed := start.AddDate(-1-i%5, 0, 0)
			if _, err := fmt.Fprintf(w, "%s,S%03d,%s,%s\n", c, i+1, industries[i%len(industries)], model.FormatDate(listed)); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeText(file string, write func(io.Writer) error) error {
	if err := ensureDir(file); err != nil {
		return err
	}
	return data.WriteFileAtomic(file, write)
}

func calendarDays(start, end time.Time) []time.Time {
	var out []time.Time
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func isWeekday(d time.Time) bool {
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

// periodEnds returns the last open day of every month and of every
// calendar quarter.
func periodEnds(open []time.Time) (months, quarters []time.Time) {
	for i, d := range open {
		if i+1 < len(open) && open[i+1].Month() == d.Month() {
			continue
		}
		months = append(months, d)
		if d.Month()%3 == 0 {
			quarters = append(quarters, d)
		}
	}
	if len(quarters) == 0 {
		quarters = append(quarters, open[len(open)-1])
	}
	return months, quarters
}

func allColumns(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// meanReturn is the equal-weighted closes-to-closes return of cols on row i.
func meanReturn(closes *model.Frame, i int, cols []int) float64 {
	var sum float64
	for _, c := range cols {
		sum += closes.At(i, c)/closes.At(i-1, c) - 1
	}
	return sum / float64(len(cols))
}

// sizeBuckets splits stocks into n groups by first-day market cap,
// smallest first.
func sizeBuckets(shares []float64, closes *model.Frame, n int) [][]int {
	order := allColumns(len(shares))
	size := func(j int) float64 { return shares[j] * closes.At(0, j) }
	sort.SliceStable(order, func(a, b int) bool { return size(order[a]) < size(order[b]) })

	out := make([][]int, n)
	for k, j := range order {
		g := k * n / len(order)
		out[g] = append(out[g], j)
	}
	return out
}

func round(x float64, places int) float64 {
	d := decimal.NewFromFloat(x).Round(int32(places))
	return d.InexactFloat64()
}
