package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/researchdesk/internal/api"
	"example.com/researchdesk/internal/config"
	"example.com/researchdesk/internal/domain"
	"example.com/researchdesk/internal/engine"
	"example.com/researchdesk/internal/logging"
	"example.com/researchdesk/internal/outbox"
	"example.com/researchdesk/internal/persistence/postgres"
	"example.com/researchdesk/internal/persistence/redisstore"
	"example.com/researchdesk/internal/poller"
	httptransport "example.com/researchdesk/internal/transport/http"
)

// store is what the service needs from either backend.
type store interface {
	domain.SnapshotStore
	domain.BoardStore
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	team, err := config.LoadTeam(cfg.TeamConfigPath)
	if err != nil {
		logger.Fatal("failed to load team configuration", zap.Error(err))
	}
	settings, err := team.Settings()
	if err != nil {
		logger.Fatal("invalid team configuration", zap.Error(err))
	}
	eng, err := engine.New(settings)
	if err != nil {
		logger.Fatal("invalid engine settings", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		backend    store
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		backend = postgres.NewStore(pool, cfg.SnapshotTopic)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		dispatcher = outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.Named("outbox")))
		go dispatcher.Start(ctx)
	case config.StoreRedis:
		rdb, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		backend = redisstore.New(rdb, cfg.RedisKeyPrefix)
	default:
		logger.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}

	service := domain.NewService(backend, backend, domain.WithRoster(team.Roster()))

	refresher := poller.New(backend, eng, cfg.PollInterval, poller.WithLogger(logger.Named("poller")))
	go refresher.Start(ctx)

	handler := api.NewHandler(service, eng,
		api.WithDisplayNames(team.DisplayNames()),
		api.WithDashboardCache(refresher),
		api.WithLogger(logger.Named("api")))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(logger.Named("http")),
		httptransport.CORS(cfg.CORSOrigin),
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("researchdesk api listening",
			zap.String("address", cfg.HTTPAddress),
			zap.String("store", cfg.StoreDriver),
			zap.Int("roster", len(team.Roster())),
			zap.Duration("poll_interval", cfg.PollInterval))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	refresher.Wait()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
