// The worker runs the penalty-accrual sweep on an interval. Charges are
// keyed (loan, installment, period), so overlapping deployments or a
// crash-and-restart mid-run never double-charge anyone.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chama-engine/internal/adapter/repository/mysql"
	"chama-engine/internal/config"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/infrastructure/db"
	"chama-engine/internal/notify"
	"chama-engine/internal/pkg/logger"
	penaltyuc "chama-engine/internal/usecase/penalty"
	"chama-engine/pkg/clock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.App.LogLevel)

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		logger.Error("mysql connect failed", err)
		os.Exit(1)
	}

	clk := clock.System
	repos := uow.Repos{
		Chamas:    mysql.NewChamaRepository(gdb),
		Loans:     mysql.NewLoanRepository(gdb),
		Rotations: mysql.NewRotationRepository(gdb),
	}
	uc := penaltyuc.NewUsecase(repos, mysql.NewGormUoW(gdb), clk, notify.NewLogNotifier(clk))
	uc.SetWorkers(cfg.Worker.WorkerCount, cfg.Worker.BufferSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := cfg.AccrualInterval()
	logger.Info("accrual worker started",
		slog.Duration("interval", interval),
		slog.Int("workers", cfg.Worker.WorkerCount))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, uc, clk)
	for {
		select {
		case <-ticker.C:
			sweep(ctx, uc, clk)
		case <-ctx.Done():
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
			logger.Info("accrual worker exited")
			return
		}
	}
}

func sweep(ctx context.Context, uc *penaltyuc.Usecase, clk clock.Clock) {
	period := penaltyuc.CurrentPeriod(clk)
	if _, err := uc.AccruePenalties(ctx, period); err != nil {
		// next tick retries; the accrual key absorbs partial runs
		logger.CtxError(ctx, "accrual sweep failed", err, slog.String("period", period))
	}
}
