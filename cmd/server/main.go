package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sitetrack/internal/config"
	"sitetrack/internal/handler"
	"sitetrack/internal/httpserver"
	"sitetrack/internal/progress"
	"sitetrack/internal/repository"
	"sitetrack/internal/service/auth"
	"sitetrack/internal/service/project"
	"sitetrack/pkg/db"
	"sitetrack/pkg/logger"
	"sitetrack/pkg/mq"
	"sitetrack/pkg/otel"
	"sitetrack/pkg/outbox"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting sitetrack server...",
		zap.String("version", version),
		zap.String("db_host", cfg.DB.Host),
		zap.String("port", cfg.Server.Port),
	)

	shutdownOTel, err := otel.Init(cfg.OTel, version, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOTel()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ publisher 只给 outbox 重放使用
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	projectRepo := repository.NewProjectRepository(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn)

	projectService := project.NewService(projectRepo, progress.NewEngine(cfg.FloorPenalty()), log)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.TokenTTL(), log)
	replayService := outbox.NewReplayService(outbox.NewRepository(dbConn), publisher, log)

	router := httpserver.NewRouter(httpserver.APIHandlers{
		Auth:    handler.NewAuthHandler(authService, log),
		Project: handler.NewProjectHandler(projectService, log),
		Admin:   handler.NewAdminHandler(replayService, log),
	}, cfg.JWT.Secret, log, map[string]httpserver.ReadinessCheck{
		"db": dbConn.Ping,
		"mq": func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("publisher disconnected")
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Server shutdown complete")
}
