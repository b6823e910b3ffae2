package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wastetrack/internal/movement/handler"
	"wastetrack/internal/movement/metrics"
	"wastetrack/internal/movement/orgcode"
	"wastetrack/internal/movement/service"
	"wastetrack/internal/movement/store"
	"wastetrack/internal/platform/config"
	"wastetrack/internal/platform/httpserver"
	"wastetrack/internal/platform/logger"
	"wastetrack/internal/platform/postgres"
	platformredis "wastetrack/internal/platform/redis"
	"wastetrack/internal/tracking"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/platform/audit/worker"
)

// main wires dependencies and owns process lifecycle. Business logic lives in
// the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: postgres when configured, otherwise the in-memory store for
	// local development.
	var (
		reader store.Store
		txRun  service.StoreTx
	)
	if cfg.PostgresDSN != "" {
		db, dbErr := postgres.Open(ctx, cfg.PostgresDSN)
		if dbErr != nil {
			log.Error("failed to open postgres", "error", dbErr.Error())
			os.Exit(1)
		}
		defer db.Close()
		if migErr := postgres.ApplySchema(ctx, db); migErr != nil {
			log.Error("failed to apply schema", "error", migErr.Error())
			os.Exit(1)
		}
		reader = store.NewPostgres(db)
		txRun = newMovementPostgresTx(db, cfg.TxTimeout)
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory storage")
		memory := store.NewMemory()
		reader = memory
		txRun = service.NewMemoryTx(memory)
	}

	// Audit pipeline: kafka sink when brokers are configured, log sink
	// otherwise. Events flow through a buffered inbox so request handling
	// never waits on the broker.
	var sink audit.Sink = audit.NewLogSink(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, kErr := audit.NewKafkaClient(cfg.KafkaBrokers)
		if kErr != nil {
			log.Error("failed to connect to kafka", "error", kErr.Error())
			os.Exit(1)
		}
		defer kafkaClient.Close()
		sink = audit.NewKafkaSink(kafkaClient, cfg.AuditTopic)
	}
	emitter := audit.NewEmitter(sink, log)
	inbox := make(chan audit.Event, 256)
	dispatcher := worker.NewDispatcher(inbox, log)
	go func() {
		_ = worker.New(emitter, inbox, log).Run(ctx)
	}()

	var issuer tracking.Issuer = tracking.NewMemoryIssuer()
	if cfg.TrackingBaseURL != "" {
		issuer = tracking.NewClient(cfg.TrackingBaseURL)
	}

	opts := []service.Option{
		service.WithIssuer(issuer),
		service.WithAuditDispatcher(dispatcher),
		service.WithAuditRetrier(emitter),
		service.WithMetrics(metrics.New()),
		service.WithBatchSize(cfg.TrackingBatchSize),
		service.WithBackoff(cfg.BackoffInitialDelay, cfg.BackoffMaxDelay, cfg.BackoffMaxAttempts),
	}
	if redisClient, rErr := platformredis.New(cfg.RedisURL); rErr != nil {
		log.Error("failed to connect to redis", "error", rErr.Error())
		os.Exit(1)
	} else if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithBulkCache(store.NewRedisBulkCache(redisClient.Client, store.DefaultBulkCacheTTL)))
	}

	movements, err := service.New(txRun, reader, orgcode.New(cfg.OrgAPICodes), log, opts...)
	if err != nil {
		log.Error("failed to build movement service", "error", err.Error())
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	handler.New(movements, log,
		handler.WithBasicAuth(cfg.BasicAuthUser, cfg.BasicAuthHash),
	).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting wastetrack", "addr", cfg.Addr)
	go func() {
		if srvErr := srv.ListenAndServe(); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			log.Error("server error", "error", srvErr.Error())
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
