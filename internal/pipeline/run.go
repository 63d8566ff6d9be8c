// Package pipeline drives a whole run: load the context, collect every
// group's result, then write charts, tables and the effective config.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"factor-backtest/internal/backtest"
	"factor-backtest/internal/config"
	"factor-backtest/internal/data"
)

var log = logrus.WithField("component", "pipeline")

// Run executes one backtest run described by cfg. Groups whose result
// file is absent are skipped with a warning and stay missing in the
// output tables.
func Run(ctx context.Context, cfg *config.Config) (*backtest.Context, error) {
	bt := backtest.New(cfg.Path, cfg.Start, cfg.End, cfg.Groups, cfg.Bench, cfg.Fee)
	if err := bt.Load(); err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	if err := Collect(ctx, bt); err != nil {
		return nil, err
	}
	if filled := bt.Filled(); len(filled) < bt.M {
		log.WithFields(logrus.Fields{"filled": filled, "groups": bt.M}).Warn("partial run")
	}

	if err := bt.Plot(); err != nil {
		return nil, fmt.Errorf("plot: %w", err)
	}
	if err := bt.Save(); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	runFile := filepath.Join(backtest.OutputDir(cfg.Path), config.RunFile)
	if err := cfg.WriteYAML(runFile); err != nil {
		return nil, fmt.Errorf("write %s: %w", runFile, err)
	}
	log.WithField("file", runFile).Info("run complete")
	return bt, nil
}

// Collect reads groups/group_<n>.csv for every group of a loaded context
// and records each one, several groups at a time.
func Collect(ctx context.Context, bt *backtest.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for n := 1; n <= bt.M; n++ {
		n := n
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := data.LoadGroupResult(bt.Path, n)
			if errors.Is(err, fs.ErrNotExist) {
				log.WithField("group", n).Warn("no result for group")
				return nil
			}
			if err != nil {
				return err
			}
			return bt.Update(res, n)
		})
	}
	return g.Wait()
}
