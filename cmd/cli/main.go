package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"factor-backtest/internal/config"
	"factor-backtest/internal/pipeline"
)

var cfgPath string

var configFlag = &cli.StringFlag{
	Name:        "config",
	Aliases:     []string{"c"},
	Usage:       "path to the YAML run config (FACTOR_* env vars override it)",
	Destination: &cfgPath,
}

func loadConfig(validate bool) (*config.Config, error) {
	load := config.LoadUnchecked
	if validate {
		load = config.Load
	}
	cfg, err := load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.SetupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "load the dataset, collect groups/group_<n>.csv and write charts and tables to output/",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		bt, err := pipeline.Run(c.Context, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded %d/%d groups over %d dates\n", len(bt.Filled()), bt.M, len(bt.Dates))
		return nil
	},
}

var reportCommand = &cli.Command{
	Name:  "report",
	Usage: "print the final net value of each group from a saved run",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		rows, err := pipeline.Summarize(cfg.Path)
		if err != nil {
			return err
		}
		pipeline.WriteReport(os.Stdout, rows)
		return nil
	},
}

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			logrus.WithError(err).Warn("config does not validate")
		}
		return cfg.Encode(os.Stdout)
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "factor-backtest"
	app.Usage = "collect grouped factor backtest results into charts and tables"
	app.Flags = []cli.Flag{configFlag}
	app.Commands = []*cli.Command{runCommand, reportCommand, configCommand}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}
