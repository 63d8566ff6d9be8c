package backtest

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

var (
	ErrNotLoaded           = errors.New("backtest context not loaded")
	ErrNilPortfolio        = errors.New("portfolio is nil")
	ErrGroupOutOfRange     = errors.New("group out of range")
	ErrGroupAlreadyUpdated = errors.New("group already updated")
	ErrInvalidGroups       = errors.New("group count must be at least 1")
)

// Portfolio is the outcome of one group's backtest: cumulative net value
// of the raw position and of the same position hedged against the
// benchmark, both indexed by trading date.
type Portfolio interface {
	NetValueHistory() model.Series
	HedgeNetValueHistory() model.Series
}

// Context holds the settings and historical data of one multi-group
// backtest run, and collects each group's net value as it completes.
//
// Lifecycle: New, Load once, Update once per group, then Plot and Save
// any number of times. Update may be called from several goroutines.
type Context struct {
	Path  string
	Start time.Time
	End   time.Time
	M     int
	Bench string
	Fee   decimal.Decimal

	Calendar *data.Calendar
	Basic    *data.Basic
	Bar      *data.Bar
	Month    *data.Month
	Ttm      *data.Ttm
	Quarter  *data.Quarter
	Index    *data.Index

	// Stocks is the security universe: the columns of the close table.
	Stocks []string
	// Dates is the trading date sequence of the run.
	Dates []time.Time

	PortfolioNV *model.Frame
	HedgeNV     *model.Frame

	mu     sync.RWMutex
	loaded bool
	filled map[int]bool
	log    *logrus.Entry
}

// New stores the run parameters. It performs no validation and no I/O.
func New(path string, start, end time.Time, m int, bench string, fee decimal.Decimal) *Context {
	return &Context{
		Path:  path,
		Start: start,
		End:   end,
		M:     m,
		Bench: bench,
		Fee:   fee,
		log:   logrus.WithField("component", "backtest"),
	}
}

func (c *Context) logger() *logrus.Entry {
	if c.log == nil {
		return logrus.WithField("component", "backtest")
	}
	return c.log
}

// Load reads every dataset under Path, derives the universe and the date
// sequence, and allocates empty result tables. M below 1 is rejected
// before any file is read. Collaborator errors are
// returned as-is (wrapped with the dataset name); after a failure the
// context must not be used.
func (c *Context) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	log := c.logger()
	if c.M < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidGroups, c.M)
	}

	c.Calendar = data.NewCalendar(c.Path)
	if err := c.Calendar.Load(); err != nil {
		return err
	}
	if err := c.Calendar.SetPeriod(c.Start, c.End); err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	log.WithField("dates", len(c.Calendar.AllDates)).Info("calendar loaded")

	c.Basic = data.NewBasic(c.Path)
	if err := c.Basic.Load(); err != nil {
		return err
	}
	log.WithField("securities", len(c.Basic.Securities)).Info("basic info loaded")

	c.Bar = data.NewBar(c.Path)
	if err := c.Bar.Load(); err != nil {
		return err
	}
	rows, cols := c.Bar.Close.Shape()
	log.WithFields(logrus.Fields{"fields": c.Bar.Fields(), "rows": rows, "cols": cols}).Info("bar loaded")

	c.Month = data.NewMonth(c.Path)
	if err := c.Month.Load(); err != nil {
		return err
	}
	log.WithField("fields", c.Month.Fields()).Info("month loaded")

	c.Ttm = data.NewTtm(c.Path)
	if err := c.Ttm.Load(); err != nil {
		return err
	}
	log.WithField("fields", c.Ttm.Fields()).Info("ttm loaded")

	c.Quarter = data.NewQuarter(c.Path)
	if err := c.Quarter.Load(); err != nil {
		return err
	}
	log.WithField("fields", c.Quarter.Fields()).Info("quarter loaded")

	c.Index = data.NewIndex(c.Path)
	if err := c.Index.Load(); err != nil {
		return err
	}
	if !c.Index.Close.HasColumn(c.Bench) {
		log.WithField("bench", c.Bench).Warn("benchmark not found in index data")
	}

	c.Stocks = c.Bar.Close.Columns()
	c.Dates = c.Calendar.AllDates

	groups := make([]string, c.M)
	for i := range groups {
		groups[i] = groupLabel(i + 1)
	}
	c.PortfolioNV = model.NewFrame(c.Dates, groups)
	c.HedgeNV = model.NewFrame(c.Dates, groups)
	c.filled = make(map[int]bool, c.M)
	c.loaded = true

	log.WithFields(logrus.Fields{
		"stocks": len(c.Stocks),
		"dates":  len(c.Dates),
		"groups": c.M,
		"bench":  c.Bench,
		"fee":    c.Fee.String(),
	}).Info("context loaded")
	return nil
}

func groupLabel(n int) string { return strconv.Itoa(n) }

// Update records group n's net value histories into column n of both
// result tables, aligned on Dates. Each group may be recorded once.
func (c *Context) Update(p Portfolio, n int) error {
	if p == nil {
		return ErrNilPortfolio
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNotLoaded
	}
	if n < 1 || n > c.M {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrGroupOutOfRange, n, c.M)
	}
	if c.filled[n] {
		return fmt.Errorf("%w: %d", ErrGroupAlreadyUpdated, n)
	}

	col := groupLabel(n)
	if err := c.PortfolioNV.SetColumn(col, p.NetValueHistory()); err != nil {
		return err
	}
	if err := c.HedgeNV.SetColumn(col, p.HedgeNetValueHistory()); err != nil {
		return err
	}
	c.filled[n] = true

	c.logger().WithFields(logrus.Fields{"group": n, "done": len(c.filled), "groups": c.M}).Info("group updated")
	return nil
}

// Filled returns the groups recorded so far, ascending.
func (c *Context) Filled() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int, 0, len(c.filled))
	for n := range c.filled {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Loaded reports whether Load completed successfully.
func (c *Context) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
