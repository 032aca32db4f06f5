package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"petchain/internal/contract/cache"
	"petchain/internal/contract/handler"
	contractmetrics "petchain/internal/contract/metrics"
	"petchain/internal/contract/service"
	"petchain/internal/platform/config"
	"petchain/internal/platform/httpserver"
	"petchain/internal/platform/logger"
	"petchain/internal/platform/metrics"
	"petchain/internal/platform/postgres"
	"petchain/internal/platform/redis"
	id "petchain/pkg/domain"
	audit "petchain/pkg/platform/audit"
	"petchain/pkg/platform/audit/publishers/compliance"
	"petchain/pkg/platform/audit/publishers/kafka"
	"petchain/pkg/platform/audit/store/memory"
	auditpostgres "petchain/pkg/platform/audit/store/postgres"
	"petchain/pkg/platform/audit/worker"
	"petchain/pkg/platform/httputil"
	"petchain/pkg/platform/middleware/metadata"
	"petchain/pkg/platform/middleware/requestid"
	"petchain/pkg/platform/middleware/requesttime"
	"petchain/pkg/platform/middleware/version"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "petchain:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	local := cache.NewInMemoryCache(cfg.Contract.VerdictCacheTTL)
	var verdictCache service.VerdictCache = local
	if redisClient != nil {
		verdictCache = cache.NewFallbackCache(
			cache.NewRedisCache(redisClient.Client, cfg.Contract.VerdictCacheTTL),
			local,
			cache.WithFallbackLogger(log),
		)
	}

	var auditStore audit.Store = memory.NewInMemoryStore(memory.WithCapacity(cfg.Database.MemoryAuditCapacity))
	var outbox *auditpostgres.Store
	if db != nil {
		outbox = auditpostgres.New(db)
		if err := outbox.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate audit outbox: %w", err)
		}
		auditStore = outbox
	}

	publisher := compliance.New(auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	)
	defer publisher.Close()

	svc, err := service.New(
		service.WithLogger(log),
		service.WithMetrics(contractmetrics.New(reg)),
		service.WithCache(verdictCache),
		service.WithAuditPublisher(publisher),
		service.WithMaxBatchSize(cfg.Contract.MaxBatchSize),
		service.WithBatchConcurrency(cfg.Contract.BatchConcurrency),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware, requesttime.Middleware, metadata.ClientMetadata)
	router.Get("/healthz", healthz(redisClient, db))
	router.Handle("/metrics", reg.Handler())
	router.Route("/v1", func(v1 chi.Router) {
		v1.Use(version.ExtractVersion(id.APIVersionV1))
		v1.Use(version.ValidateRequestedVersion(log))
		handler.New(svc, log).Register(v1)
	})

	g, gctx := errgroup.WithContext(ctx)

	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		w, closeRelay, err := newRelayWorker(gctx, cfg.Kafka, outbox, db, reg, log)
		if err != nil {
			return err
		}
		defer closeRelay()
		g.Go(func() error {
			if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("starting petchain", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down petchain")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRelayWorker(
	ctx context.Context,
	cfg config.KafkaConfig,
	outbox *auditpostgres.Store,
	db *sql.DB,
	reg *metrics.Registry,
	log *slog.Logger,
) (*worker.Worker, func(), error) {
	client, err := kafka.NewClient(cfg.Brokers, cfg.ClientID)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Topic, -1, -1); err != nil {
		client.Close()
		return nil, nil, err
	}

	relay, err := kafka.New(client, outbox, cfg.Topic,
		kafka.WithLogger(log),
		kafka.WithMetrics(kafka.NewMetrics(reg)),
		kafka.WithBatchSize(cfg.BatchSize),
		kafka.WithTxRunner(newOutboxPostgresTx(db).Run),
	)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return worker.NewWorker(relay, cfg.OutboxInterval, cfg.BatchSize, log), client.Close, nil
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(redisClient *redis.Client, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		if redisClient != nil {
			resp.Checks["redis"] = checkResult(redisClient.Health(ctx))
		}
		if db != nil {
			resp.Checks["postgres"] = checkResult(db.PingContext(ctx))
		}

		status := http.StatusOK
		for _, v := range resp.Checks {
			if v != "ok" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func checkResult(err error) string {
	if err != nil {
		return "unavailable"
	}
	return "ok"
}
