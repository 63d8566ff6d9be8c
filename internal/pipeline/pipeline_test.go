package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factor-backtest/internal/backtest"
	"factor-backtest/internal/config"
	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func synthetic(t *testing.T, groups int) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	fee := decimal.RequireFromString("0.0015")
	require.NoError(t, WriteSynthetic(root, Synthetic{
		Start:  day("2020-01-01"),
		End:    day("2020-06-30"),
		Stocks: 12,
		Groups: groups,
		Bench:  "000300.SH",
		Fee:    fee,
		Seed:   7,
	}))
	cfg := &config.Config{
		Path:   root,
		Start:  day("2020-02-01"),
		End:    day("2020-05-31"),
		Groups: groups,
		Bench:  "000300.SH",
		Fee:    fee,
		Log:    config.LogConfig{Level: "info", Format: "text"},
	}
	require.NoError(t, cfg.Validate())
	return root, cfg
}

func TestWriteSynthetic(t *testing.T) {
	t.Parallel()
	root, _ := synthetic(t, 4)

	bt := backtest.New(root, day("2020-01-01"), day("2020-06-30"), 4, "000300.SH", decimal.Zero)
	require.NoError(t, bt.Load())
	assert.Len(t, bt.Stocks, 12)
	for _, d := range bt.Dates {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
	assert.Equal(t, []string{"mkt_cap"}, bt.Month.Fields())

	for n := 1; n <= 4; n++ {
		g, err := data.LoadGroupResult(root, n)
		require.NoError(t, err)
		require.NotEmpty(t, g.NV)
		assert.InDelta(t, 0.9985, g.NV[0].Value, 1e-9)
		assert.InDelta(t, 0.9985, g.HedgeNV[0].Value, 1e-9)
	}
	_, err := data.LoadGroupResult(root, 5)
	assert.Error(t, err)
}

func TestWriteSyntheticRejectsTooFewStocks(t *testing.T) {
	t.Parallel()
	err := WriteSynthetic(t.TempDir(), Synthetic{Start: day("2020-01-01"), End: day("2020-02-01"), Stocks: 2, Groups: 3})
	assert.True(t, errors.Is(err, errTooFewStocks))
}

func TestRun(t *testing.T) {
	t.Parallel()
	root, cfg := synthetic(t, 4)

	bt, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, bt.Filled())

	for _, tbl := range backtest.Tables {
		_, err := os.Stat(tbl.CSVPath(root))
		assert.NoError(t, err)
		_, err = os.Stat(tbl.PNGPath(root))
		assert.NoError(t, err)
	}

	back, err := config.Load(filepath.Join(backtest.OutputDir(root), config.RunFile))
	require.NoError(t, err)
	assert.Equal(t, cfg.Start, back.Start)
	assert.Equal(t, cfg.Groups, back.Groups)

	rows, err := Summarize(root)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.False(t, model.IsMissing(r.NV))
		assert.Equal(t, bt.Dates[len(bt.Dates)-1], r.Date)
	}

	var buf bytes.Buffer
	WriteReport(&buf, rows)
	assert.Contains(t, buf.String(), "GROUP")
	assert.Contains(t, buf.String(), model.FormatDate(bt.Dates[len(bt.Dates)-1]))
}

func TestRunPartial(t *testing.T) {
	t.Parallel()
	root, cfg := synthetic(t, 3)
	require.NoError(t, os.Remove(data.GroupFile(root, 3)))

	bt, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, bt.Filled())

	rows, err := Summarize(root)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, model.IsMissing(rows[2].NV))
	assert.True(t, rows[2].Date.IsZero())
	assert.Equal(t, 0, rows[2].Count)
	assert.Equal(t, len(bt.Dates), rows[0].Count)

	var buf bytes.Buffer
	WriteReport(&buf, rows)
	assert.Contains(t, buf.String(), "-")
}

func TestRunBadGroupFile(t *testing.T) {
	t.Parallel()
	root, cfg := synthetic(t, 2)
	require.NoError(t, os.WriteFile(data.GroupFile(root, 2), []byte("date,nv\n2020-02-03,1\n"), 0o644))

	_, err := Run(context.Background(), cfg)
	assert.True(t, errors.Is(err, model.ErrUnknownColumn), "%v", err)
}

func TestRunLoadFailure(t *testing.T) {
	t.Parallel()
	_, cfg := synthetic(t, 2)
	cfg.Path = t.TempDir()
	_, err := Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCollectCancelled(t *testing.T) {
	t.Parallel()
	root, cfg := synthetic(t, 2)
	bt := backtest.New(root, cfg.Start, cfg.End, cfg.Groups, cfg.Bench, cfg.Fee)
	require.NoError(t, bt.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(Collect(ctx, bt), context.Canceled))
	assert.Empty(t, bt.Filled())
}

func TestSummarizeWithoutOutputs(t *testing.T) {
	t.Parallel()
	_, err := Summarize(t.TempDir())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
