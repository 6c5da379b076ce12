package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/oracle"
	"github.com/radieske/pari-contest-platform/internal/shared/config"
	"github.com/radieske/pari-contest-platform/internal/shared/logger"
	"github.com/radieske/pari-contest-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := oracle.NewSimulator(log, prometheus.DefaultRegisterer)
	if cfg.OracleAutoOutcomes > 0 {
		sim.AutoOutcomes = uint8(min(cfg.OracleAutoOutcomes, 255))
		sim.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           sim.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("oracle simulator running",
		zap.String("addr", srv.Addr),
		zap.String("paths", "/contests/{id}/result"),
		zap.Uint8("auto_outcomes", sim.AutoOutcomes),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("public server error", zap.Error(err))
	}
}
