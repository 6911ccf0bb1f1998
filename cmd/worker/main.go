package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	contractmq "sitetrack/contracts/mq"
	"sitetrack/internal/config"
	"sitetrack/internal/httpserver"
	"sitetrack/internal/mqhandler"
	"sitetrack/internal/progress"
	"sitetrack/internal/repository"
	"sitetrack/internal/service/project"
	"sitetrack/internal/service/sweep"
	"sitetrack/pkg/circuitbreaker"
	"sitetrack/pkg/db"
	"sitetrack/pkg/logger"
	"sitetrack/pkg/mq"
	"sitetrack/pkg/otel"
	"sitetrack/pkg/outbox"
	"sitetrack/pkg/redis"
	"sitetrack/pkg/util"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting sitetrack worker...", zap.String("version", version))

	shutdownOTel, err := otel.Init(cfg.OTel, version, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOTel()

	// Redis
	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.DedupTTL(), log)
	retryCounter := util.NewRetryCounter(rdb, cfg.DedupTTL())

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	projectRepo := repository.NewProjectRepository(dbConn, log)
	projectService := project.NewService(projectRepo, progress.NewEngine(cfg.FloorPenalty()), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("Starting " + name)
			fn()
		}()
	}

	// Outbox dispatcher
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warn("Outbox circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), publisher, log).
		WithInterval(cfg.OutboxInterval()).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries).
		WithBreaker(breaker)
	run("outbox dispatcher", func() { dispatcher.Start(ctx) })

	// Daily sweep
	sweeper := sweep.NewSweeper(projectService, cfg.Sweep.Hour, cfg.Sweep.RunOnStart, log)
	run("daily sweep", func() { sweeper.Start(ctx) })

	// Recompute request consumer
	recomputeHandler := mqhandler.NewRecomputeHandler(projectService, deduper, retryCounter, cfg.Consumer.MaxRetries, log)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Consumer.Queue, contractmq.RoutingProjectRecomputeRequested, log)
	if err != nil {
		log.Fatal("Failed to init recompute consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(recomputeHandler.Handle)
	run("recompute consumer", func() {
		if err := consumer.StartConsuming(ctx); err != nil {
			log.Error("Recompute consumer stopped", zap.Error(err))
			cancel()
		}
	})

	// Health
	health := httpserver.NewHealthRouter(map[string]httpserver.ReadinessCheck{
		"db":    dbConn.Ping,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"mq": func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("publisher disconnected")
			}
			return nil
		},
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           health.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Health server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health server failed", zap.Error(err))
		}
	}()

	log.Info("Worker is running",
		zap.String("queue", cfg.Consumer.Queue),
		zap.Int("sweep_hour", cfg.Sweep.Hour),
	)

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("Shutting down worker gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}

	wg.Wait()
	log.Info("Worker shutdown complete")
}
