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

	"arithmetic-calculator/internal/api"
	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/config"
	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/grpc"
	"arithmetic-calculator/internal/logger"
	"arithmetic-calculator/internal/metrics"
	"arithmetic-calculator/internal/random"
	"arithmetic-calculator/internal/settlement"
	"arithmetic-calculator/internal/userlock"
)

func main() {
	config.InitConfig(".env")
	cfg := config.AppConfig
	logger.InitLogger(cfg.LogFilePath, cfg.LogLevel)
	defer logger.CloseLogger()

	if err := run(cfg); err != nil {
		logger.LogERROR("server stopped with error", zap.Error(err))
		logger.CloseLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализируем базу данных
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := applyCostOverrides(ctx, store, cfg.CostsFile); err != nil {
		return err
	}

	locks := userlock.NewTable()
	if err := metrics.RegisterLockGauge(locks.Len); err != nil {
		return err
	}

	rnd := random.NewClient(cfg.RandomAPIURL, cfg.RandomAPIKey, cfg.RandomTimeout)
	settler := settlement.New(locks, store, store, store, evaluator.New(rnd))

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(ctx, 10*time.Minute)

	router := api.NewRouter(api.Deps{
		Auth:    auth.NewHandler(store, cfg.InitialBalance),
		Settler: settler,
		Records: store,
		Limiter: limiter,
		Health:  store.Ping,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем HTTP сервер в отдельной горутине
	httpErr := make(chan error, 1)
	go func() {
		logger.LogINFO("HTTP server listening", zap.String("port", cfg.ServerPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	grpcServer, err := grpc.StartGRPCServer(":"+cfg.GRPCPort, grpc.NewOperationService(settler, store))
	if err != nil {
		return err
	}

	// Ожидаем сигнал для остановки
	select {
	case <-ctx.Done():
		logger.LogINFO("shutdown signal received")
	case err := <-httpErr:
		if err != nil {
			grpcServer.Stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.LogERROR("HTTP shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.LogINFO("server stopped")
	return nil
}

// applyCostOverrides применяет стоимости из COSTS_FILE поверх каталога
func applyCostOverrides(ctx context.Context, store *db.Store, path string) error {
	costs, err := config.LoadCosts(path)
	if err != nil {
		return err
	}
	for kind, cost := range costs {
		if err := store.SetOperationCost(ctx, evaluator.Kind(kind), cost); err != nil {
			return err
		}
		logger.LogINFO("operation cost overridden", zap.String("kind", kind), zap.Int64("cost", cost))
	}
	return nil
}
