package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/shared/config"
	"github.com/radieske/pari-contest-platform/internal/shared/db"
	"github.com/radieske/pari-contest-platform/internal/shared/logger"
	"github.com/radieske/pari-contest-platform/internal/shared/metrics"
	whttp "github.com/radieske/pari-contest-platform/internal/wallet-service/http"
	wrepo "github.com/radieske/pari-contest-platform/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("wallet-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wallet-service"), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repo := wrepo.NewPostgres(pg)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	api := whttp.NewServer(log, repo)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.String("metrics", metricsSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
}
