package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"factor-backtest/internal/api"
	"factor-backtest/internal/backtest"
	"factor-backtest/internal/config"
	"factor-backtest/internal/data"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (FACTOR_* env vars override it)")
	flag.Parse()

	// The server only reads saved results, so the run window is not required.
	cfg, err := config.LoadUnchecked(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if err := config.SetupLogging(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("setup logging")
	}
	log := logrus.WithField("component", "api")

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	outDir := backtest.OutputDir(cfg.Path)
	if info, err := os.Stat(outDir); err == nil && info.IsDir() {
		log.WithField("dir", outDir).Info("serving results")
	} else {
		log.WithField("dir", outDir).Warn("output directory not found, results will be empty until a run saves them")
	}

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.Handler(cfg.Path, cfg.API.AllowedOrigins, data.NewFrameCache()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", cfg.API.Addr).Info("starting API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
}
