package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "chama-engine/internal/adapter/http"
	"chama-engine/internal/adapter/repository/mysql"
	"chama-engine/internal/config"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/infrastructure/cache"
	"chama-engine/internal/infrastructure/db"
	"chama-engine/internal/notify"
	"chama-engine/internal/pkg/logger"
	guarantoruc "chama-engine/internal/usecase/guarantor"
	loanuc "chama-engine/internal/usecase/loan"
	repaymentuc "chama-engine/internal/usecase/repayment"
	rotationuc "chama-engine/internal/usecase/rotation"
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
	rdb, err := cache.OpenRedis(cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.Error("redis connect failed", err)
		os.Exit(1)
	}

	clk := clock.System
	notifier := notify.NewLogNotifier(clk)
	repos := uow.Repos{
		Chamas:    mysql.NewChamaRepository(gdb),
		Loans:     mysql.NewLoanRepository(gdb),
		Rotations: mysql.NewRotationRepository(gdb),
	}
	tx := mysql.NewGormUoW(gdb)

	h := httpadp.Handlers{
		Health:     httpadp.NewHandler(),
		Loans:      httpadp.NewLoanHandler(loanuc.NewUsecase(repos, tx, clk, notifier)),
		Guarantors: httpadp.NewGuarantorHandler(guarantoruc.NewUsecase(tx, clk, notifier)),
		Repayments: httpadp.NewRepaymentHandler(repaymentuc.NewUsecase(tx, clk, notifier)),
		Rotations:  httpadp.NewRotationHandler(rotationuc.NewUsecase(repos, tx, clk, notifier)),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger(), middleware.Recover())
	httpadp.Register(e, rdb, cfg.IdempotencyTTL(), h)

	go func() {
		addr := ":" + cfg.App.Port
		logger.Info("listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", err)
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis close failed", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("exited")
}
