package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/payout"
	"github.com/radieske/pari-contest-platform/internal/shared/config"
	"github.com/radieske/pari-contest-platform/internal/shared/kafka"
	"github.com/radieske/pari-contest-platform/internal/shared/logger"
	"github.com/radieske/pari-contest-platform/internal/shared/metrics"
)

var (
	payoutsCredited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_worker_credited_total",
		Help: "Payout instructions applied to wallets",
	})
	payoutVolume = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_worker_credited_volume_total",
		Help: "Sum of credited amounts",
	})
	payoutsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_worker_failed_total",
		Help: "Payout instructions sent to the DLQ after retries",
	})
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

	prometheus.MustRegister(payoutsCredited, payoutVolume, payoutsFailed)

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPayoutInstructions, "payout-worker")
	defer reader.Close()

	var dlq kafka.MessageWriter
	if cfg.TopicPayoutInstructionsDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutInstructionsDLQ)
		defer w.Close()
		dlq = w
	}

	proc := payout.NewProcessor(payout.NewWalletClient(cfg.WalletURL), dlq, log)
	proc.OnCredited = func(amount uint64) {
		payoutsCredited.Inc()
		payoutVolume.Add(float64(amount))
	}
	proc.OnFailed = payoutsFailed.Inc

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })
	defer metricsSrv.Close()

	log.Info("payout-worker started",
		zap.String("consume", cfg.TopicPayoutInstructions),
		zap.String("dlq", cfg.TopicPayoutInstructionsDLQ),
		zap.String("wallet", cfg.WalletURL),
	)

	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("payout-worker stopping")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if err := proc.HandleMessage(ctx, key, value); err != nil {
			log.Error("process payout", zap.ByteString("key", key), zap.Error(err))
			time.Sleep(500 * time.Millisecond)
		}
	}
}
