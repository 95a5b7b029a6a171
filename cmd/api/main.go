package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmedeiros/payrouter/internal/bootstrap"
	"github.com/rmedeiros/payrouter/internal/controller"
	"github.com/rmedeiros/payrouter/internal/dispatch"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/health"
	infraRedis "github.com/rmedeiros/payrouter/internal/infrastructure/redis"
	"github.com/rmedeiros/payrouter/internal/providers"
	"github.com/rmedeiros/payrouter/internal/repository/postgres"
	"github.com/rmedeiros/payrouter/internal/service"
	"github.com/rmedeiros/payrouter/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payrouter-api", "payrouter")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Provider clients ---
	primary := providers.NewHTTPClient(payment.ProviderPrimary,
		cfg.Providers.Primary.BaseURL, cfg.Providers.Primary.RequestTimeout)
	secondary := providers.NewHTTPClient(payment.ProviderSecondary,
		cfg.Providers.Secondary.BaseURL, cfg.Providers.Secondary.RequestTimeout)
	registry := providers.NewRegistry(primary, secondary)

	// --- Health monitor ---
	monitor := health.NewMonitor(
		[]health.Prober{primary, secondary},
		cfg.Providers.HealthInterval,
		cfg.Providers.ProbeTimeout,
		app.Logger,
		&health.MetricsObserver{Metrics: app.Metrics},
	)
	go monitor.Run(ctx)

	// --- Repositories and services ---
	settlementRepo := postgres.NewSettlementRepository(app.Pool)
	dispatcher := dispatch.NewDispatcher(
		registry,
		monitor,
		settlementRepo,
		dispatch.Config{
			AttemptTimeout:   cfg.Dispatch.AttemptTimeout,
			FailingPenaltyMs: cfg.Dispatch.FailingPenaltyMs,
			SecondaryBiasMs:  cfg.Dispatch.SecondaryBiasMs,
		},
		app.Logger,
		app.Metrics,
	)
	queue := infraRedis.NewRetryQueue(
		app.Redis,
		cfg.Worker.ConsumerGroup,
		cfg.InstanceID,
		cfg.Worker.BatchSize,
		cfg.Worker.BlockDuration,
	)
	paymentService := service.NewPaymentService(
		dispatcher,
		queue,
		settlementRepo,
		retry.Config{
			MaxAttempts:  uint(cfg.Retry.EnqueueAttempts),
			InitialDelay: cfg.Retry.EnqueueRetryDelay,
			MaxDelay:     cfg.Retry.EnqueueRetryDelay * 4,
		},
		app.Logger,
		app.Metrics,
	)
	summaryService := service.NewSummaryService(settlementRepo)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:           app.Pool,
		RedisClient:    app.Redis,
		PaymentService: paymentService,
		SummaryService: summaryService,
		Metrics:        app.Metrics,
		CORSConfig:     cfg.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
