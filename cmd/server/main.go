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
	"golang.org/x/sync/errgroup"

	campaignhandler "quorum/internal/campaign/handler"
	campaignmetrics "quorum/internal/campaign/metrics"
	campaignservice "quorum/internal/campaign/service"
	campaignstore "quorum/internal/campaign/store"
	cataloghandler "quorum/internal/catalog/handler"
	catalogservice "quorum/internal/catalog/service"
	catalogstore "quorum/internal/catalog/store"
	"quorum/internal/events"
	"quorum/internal/platform/config"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/logger"
	"quorum/internal/platform/middleware"
	"quorum/internal/platform/postgres"
	"quorum/internal/platform/redis"
	"quorum/internal/platform/token"
	scoringhandler "quorum/internal/scoring/handler"
	scoringmetrics "quorum/internal/scoring/metrics"
	"quorum/internal/scoring/progresscache"
	scoringservice "quorum/internal/scoring/service"
	scoringstore "quorum/internal/scoring/store"
)

// main wires the stores, services and HTTP surface. Business logic lives in
// the internal service packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		items       catalogstore.Store  = catalogstore.NewInMemory()
		campaigns   campaignstore.Store = campaignstore.NewInMemory()
		assignments scoringstore.Store  = scoringstore.NewInMemory()
		storeTx     *postgresStoreTx
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		items = catalogstore.NewPostgres(db)
		campaigns = campaignstore.NewPostgres(db)
		assignments = scoringstore.NewPostgres(db)
		storeTx = newPostgresStoreTx(db)
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var emitter events.Emitter = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafka(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		emitter = kafka
	}

	tokens := token.NewService(cfg.TokenSigningKey, cfg.TokenTTL)

	catalogSvc, err := catalogservice.New(items, catalogservice.WithLogger(log))
	if err != nil {
		log.Error("failed to build catalog service", "error", err)
		os.Exit(1)
	}

	var cache *progresscache.Cache
	if redisClient != nil {
		cache = progresscache.New(redisClient.Client, cfg.ProgressCacheTTL)
	}
	scoringOpts := []scoringservice.Option{
		scoringservice.WithLogger(log),
		scoringservice.WithMetrics(scoringmetrics.New()),
		scoringservice.WithEmitter(emitter),
		scoringservice.WithProgressCache(cache),
	}
	if storeTx != nil {
		scoringOpts = append(scoringOpts, scoringservice.WithStoreTx(storeTx))
	}
	scoringSvc, err := scoringservice.New(assignments, catalogSvc, scoringOpts...)
	if err != nil {
		log.Error("failed to build scoring service", "error", err)
		os.Exit(1)
	}

	campaignOpts := []campaignservice.Option{
		campaignservice.WithLogger(log),
		campaignservice.WithMetrics(campaignmetrics.New()),
		campaignservice.WithEmitter(emitter),
	}
	if storeTx != nil {
		campaignOpts = append(campaignOpts, campaignservice.WithStoreTx(storeTx))
	}
	campaignSvc, err := campaignservice.New(campaigns, catalogSvc, scoringSvc, tokens, campaignOpts...)
	if err != nil {
		log.Error("failed to build campaign service", "error", err)
		os.Exit(1)
	}

	requireOperator := middleware.RequireOperator(cfg.OperatorKeyHash, log)
	requireParticipant := middleware.RequireParticipant(tokens, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestMeta)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	cataloghandler.New(catalogSvc, scoringSvc, requireOperator, log).Register(router)
	campaignhandler.New(campaignSvc, requireOperator, log).Register(router)
	scoringhandler.New(scoringSvc, requireParticipant, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(shutdownCtx)
	group.Go(func() error {
		log.Info("starting quorum", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("quorum stopped")
}
