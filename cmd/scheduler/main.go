package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sulimanbank/bankcore/internal/core/services"
	"github.com/sulimanbank/bankcore/internal/middleware"
	"github.com/sulimanbank/bankcore/internal/platform/config"
	"github.com/sulimanbank/bankcore/internal/repositories/database/pgsql"
	"github.com/sulimanbank/bankcore/pkg/database"
)

// The scheduler runs the daily delinquency sweep: pending installments whose
// due date has passed become overdue, and loans over the consecutive missed
// threshold become defaulted.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(cfg, repos, nil)

	c := cron.New(cron.WithSeconds())
	// Midnight UTC, daily.
	_, err = c.AddFunc("0 0 0 * * *", func() {
		ctx := middleware.ContextWithLogger(context.Background(), logger)
		ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		result, err := serviceContainer.Loan.MarkOverdueAndDefaults(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Delinquency sweep failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("Delinquency sweep completed",
			slog.Int64("installments_marked_overdue", result.InstallmentsMarkedOverdue),
			slog.Int("loans_defaulted", result.LoansDefaulted),
		)
	})
	if err != nil {
		logger.Error("Failed to register sweep job", slog.String("error", err.Error()))
		os.Exit(1)
	}

	c.Start()
	logger.Info("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Scheduler shutting down")
	<-c.Stop().Done()
}
