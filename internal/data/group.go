package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/samber/lo"

	"factor-backtest/internal/model"
)

const (
	groupNVColumn      = "nv"
	groupHedgeNVColumn = "hedge_nv"
)

// GroupResult is the net-value history of one group, as written by an
// external backtest engine to groups/group_<n>.csv (date,nv,hedge_nv).
type GroupResult struct {
	Group   int
	NV      model.Series
	HedgeNV model.Series
}

// A nil *GroupResult has empty histories.
func (g *GroupResult) NetValueHistory() model.Series {
	if g == nil {
		return nil
	}
	return g.NV
}

func (g *GroupResult) HedgeNetValueHistory() model.Series {
	if g == nil {
		return nil
	}
	return g.HedgeNV
}

// GroupFile is the conventional location of group n's result file.
func GroupFile(path string, n int) string {
	return filepath.Join(path, "groups", fmt.Sprintf("group_%d.csv", n))
}

// LoadGroupResult reads group n's result file under path.
func LoadGroupResult(path string, n int) (*GroupResult, error) {
	file := GroupFile(path, n)
	f, err := ReadFrameCSV(file)
	if err != nil {
		return nil, fmt.Errorf("load group %d: %w", n, err)
	}
	nv, err := f.Column(groupNVColumn)
	if err != nil {
		return nil, fmt.Errorf("load group %d: %s: %w", n, file, err)
	}
	hedge, err := f.Column(groupHedgeNVColumn)
	if err != nil {
		return nil, fmt.Errorf("load group %d: %s: %w", n, file, err)
	}
	return &GroupResult{Group: n, NV: nv, HedgeNV: hedge}, nil
}

// WriteGroupResult writes g to its conventional file under path. Dates
// present in only one series leave the other cell empty.
func WriteGroupResult(path string, g *GroupResult) error {
	index := unionDates(g.NV, g.HedgeNV)
	f := model.NewFrame(index, []string{groupNVColumn, groupHedgeNVColumn})
	if err := f.SetColumn(groupNVColumn, g.NV); err != nil {
		return err
	}
	if err := f.SetColumn(groupHedgeNVColumn, g.HedgeNV); err != nil {
		return err
	}
	file := GroupFile(path, g.Group)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return WriteFrameCSV(file, f, "date")
}

func unionDates(series ...model.Series) []time.Time {
	all := lo.FlatMap(series, func(s model.Series, _ int) []time.Time {
		return lo.Map(s, func(p model.Point, _ int) time.Time { return model.Day(p.Date) })
	})
	dates := lo.Uniq(all)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
