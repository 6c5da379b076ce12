package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/access"
	"github.com/radieske/pari-contest-platform/internal/auth"
	"github.com/radieske/pari-contest-platform/internal/contest"
	httpapi "github.com/radieske/pari-contest-platform/internal/contest-service/http"
	"github.com/radieske/pari-contest-platform/internal/contest-service/wallet"
	"github.com/radieske/pari-contest-platform/internal/contest-service/ws"
	"github.com/radieske/pari-contest-platform/internal/events"
	"github.com/radieske/pari-contest-platform/internal/oracle"
	"github.com/radieske/pari-contest-platform/internal/payout"
	"github.com/radieske/pari-contest-platform/internal/shared/cache"
	"github.com/radieske/pari-contest-platform/internal/shared/config"
	"github.com/radieske/pari-contest-platform/internal/shared/db"
	"github.com/radieske/pari-contest-platform/internal/shared/kafka"
	"github.com/radieske/pari-contest-platform/internal/shared/logger"
	"github.com/radieske/pari-contest-platform/internal/shared/metrics"
	"github.com/radieske/pari-contest-platform/internal/signer"
	"github.com/radieske/pari-contest-platform/internal/store/memory"
	"github.com/radieske/pari-contest-platform/internal/store/postgres"
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

	if cfg.SignerPublicKey == "" {
		log.Fatal("SIGNER_PUBLIC_KEY is required")
	}

	health := []metrics.HealthFunc{}

	// Store: Postgres (padrão) ou memória
	var store contest.Store
	switch cfg.StoreDriver {
	case "memory":
		store = memory.New()
		log.Warn("using in-memory store; state is lost on restart")
	default:
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := postgres.Migrate(ctx, pg); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		store = postgres.New(pg)
		health = append(health, pg.PingContext)
		log.Info("postgres connected")
	}

	// Redis: viewing keys, pub/sub do WS e anti-replay das assinaturas
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	health = append(health, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	log.Info("redis connected")

	// Kafka: eventos de contest e instruções de pagamento
	eventWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicContestEvents)
	defer eventWriter.Close()
	payoutWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutInstructions)
	defer payoutWriter.Close()

	contestMetrics := metrics.NewContestMetrics(prometheus.DefaultRegisterer)
	keys := access.New(redisClient)

	engine := contest.New(store, oracle.New(cfg.OracleURL), signer.NewVerifier(),
		contest.WithDisburser(payout.NewProducer(payoutWriter)),
		contest.WithAccessControl(keys),
		contest.WithPublisher(events.NewFanout(log,
			events.NewKafkaPublisher(eventWriter),
			events.NewBroadcaster(redisClient, cfg.RedisPubSubChannel),
		)),
		contest.WithLogger(log),
		contest.WithHooks(contestMetrics.Hooks()),
	)
	if err := engine.Bootstrap(ctx, contest.GlobalConfig{
		Owner:           auth.Normalize(cfg.OwnerAddress),
		SignerPublicKey: cfg.SignerPublicKey,
		MinimumBet:      cfg.MinimumBet,
		Fee:             contest.FeeFraction{Numerator: cfg.FeeNumerator, Denominator: cfg.FeeDenominator},
	}); err != nil {
		log.Fatal("bootstrap global config", zap.Error(err))
	}

	// reenvia pagamentos que ficaram no outbox
	go engine.RunDisbursementRelay(ctx, 5*time.Second, 100)

	hub := ws.NewHub(log, func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		for _, check := range health {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	api := &httpapi.API{
		Engine: engine,
		Keys:   keys,
		Funds:  wallet.New(cfg.WalletURL),
		Auth: &auth.Authenticator{
			Replay: auth.NewRedisReplayGuard(redisClient),
			Log:    log,
		},
		WS:  http.HandlerFunc(hub.HandleWS),
		Log: log,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("contest service running",
		zap.String("addr", srv.Addr),
		zap.String("metrics", ":"+cfg.MetricsPort),
		zap.String("store", cfg.StoreDriver),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server failed", zap.Error(err))
	}
}
