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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	auditHandler "fieldledger/internal/audit/handler"
	auditMetrics "fieldledger/internal/audit/metrics"
	"fieldledger/internal/audit/relay"
	auditService "fieldledger/internal/audit/service"
	auditPostgres "fieldledger/internal/audit/store/postgres"
	importHandler "fieldledger/internal/importlog/handler"
	importMetrics "fieldledger/internal/importlog/metrics"
	importService "fieldledger/internal/importlog/service"
	importPostgres "fieldledger/internal/importlog/store/postgres"
	"fieldledger/internal/platform/config"
	"fieldledger/internal/platform/httpserver"
	"fieldledger/internal/platform/logger"
	platformMetrics "fieldledger/internal/platform/metrics"
	platformPostgres "fieldledger/internal/platform/postgres"
	"fieldledger/internal/sequence"
	sequenceMetrics "fieldledger/internal/sequence/metrics"
	sequenceMemory "fieldledger/internal/sequence/store/memory"
	sequencePostgres "fieldledger/internal/sequence/store/postgres"
	sequenceRedis "fieldledger/internal/sequence/store/redis"
	"fieldledger/migrations"
	"fieldledger/pkg/platform/middleware/requestid"
	"fieldledger/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := platformPostgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	var sequenceStore sequence.Store
	switch cfg.SequenceBackend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		sequenceStore = sequenceRedis.NewRedis(redisClient)
	case "memory":
		sequenceStore = sequenceMemory.New()
	default:
		sequenceStore = sequencePostgres.NewPostgres(db)
	}

	sequenceSvc, err := sequence.New(sequenceStore,
		sequence.WithLogger(log),
		sequence.WithMetrics(sequenceMetrics.New()),
	)
	if err != nil {
		log.Error("sequence service init failed", "error", err)
		os.Exit(1)
	}

	auditStore := auditPostgres.NewPostgres(db)
	auditSvc, err := auditService.New(auditStore, sequenceSvc,
		auditService.WithLogger(log),
		auditService.WithMetrics(auditMetrics.New()),
	)
	if err != nil {
		log.Error("audit service init failed", "error", err)
		os.Exit(1)
	}

	importSvc, err := importService.New(importPostgres.NewPostgres(db), sequenceSvc,
		importService.WithLogger(log),
		importService.WithMetrics(importMetrics.New()),
		importService.WithAuditRecorder(auditSvc),
	)
	if err != nil {
		log.Error("importlog service init failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", platformMetrics.Handler())
	auditHandler.New(auditSvc, log).Register(router)
	importHandler.New(importSvc, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting fieldledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := relay.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		auditRelay, err := relay.New(auditStore, publisher, log, cfg.RelayInterval, cfg.RelayBatchSize)
		if err != nil {
			log.Error("audit relay init failed", "error", err)
			os.Exit(1)
		}
		group.Go(func() error {
			log.Info("starting audit relay", "topic", cfg.KafkaAuditTopic, "interval", cfg.RelayInterval)
			if err := auditRelay.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
