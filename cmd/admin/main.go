package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitetrack/internal/config"
	"sitetrack/internal/progress"
	"sitetrack/internal/repository"
	"sitetrack/internal/service/project"
	"sitetrack/pkg/db"
	"sitetrack/pkg/logger"
	"sitetrack/pkg/mq"
)

// app holds what the subcommands share. Connections are opened on first use.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	pool      *pgxpool.Pool
	publisher *mq.Publisher
}

func (a *app) db() (*pgxpool.Pool, error) {
	if a.pool == nil {
		pool, err := db.NewConnection(a.cfg.DB, a.log)
		if err != nil {
			return nil, err
		}
		a.pool = pool
	}
	return a.pool, nil
}

func (a *app) mq() (*mq.Publisher, error) {
	if a.publisher == nil {
		p, err := mq.NewPublisher(a.cfg.MQ.URL)
		if err != nil {
			return nil, err
		}
		a.publisher = p
	}
	return a.publisher, nil
}

func (a *app) projects() (*project.Service, error) {
	pool, err := a.db()
	if err != nil {
		return nil, err
	}
	repo := repository.NewProjectRepository(pool, a.log)
	return project.NewService(repo, progress.NewEngine(a.cfg.FloorPenalty()), a.log), nil
}

func (a *app) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sitetrack-admin",
		Short:         "Operator commands for sitetrack",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.NewLogger(cfg.Log.Level)
			return nil
		},
	}

	cmd.AddCommand(sweepCmd(a))
	cmd.AddCommand(recomputeCmd(a))
	cmd.AddCommand(outboxCmd(a))
	cmd.AddCommand(userCmd(a))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := &app{}
	err := rootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
