package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmedeiros/payrouter/internal/bootstrap"
	"github.com/rmedeiros/payrouter/internal/dispatch"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/health"
	infraRedis "github.com/rmedeiros/payrouter/internal/infrastructure/redis"
	"github.com/rmedeiros/payrouter/internal/providers"
	"github.com/rmedeiros/payrouter/internal/repository/postgres"
	"github.com/rmedeiros/payrouter/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payrouter-worker", "payrouter_worker")
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

	// --- Dispatcher over the audit store ---
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

	// --- Retry queue ---
	queue := infraRedis.NewRetryQueue(
		app.Redis,
		cfg.Worker.ConsumerGroup,
		cfg.InstanceID,
		cfg.Worker.BatchSize,
		cfg.Worker.BlockDuration,
	)
	if err := queue.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	lockManager := infraRedis.NewLockManager(app.Redis, cfg.Retry.LeaseTTL)

	w := worker.New(
		queue,
		dispatcher,
		settlementRepo,
		func(correlationID string) worker.Lock { return lockManager.PaymentLock(correlationID) },
		worker.Config{
			MaxAttempts:         cfg.Retry.MaxAttempts,
			BaseDelay:           cfg.Retry.BaseDelay,
			LeaseTTL:            cfg.Retry.LeaseTTL,
			SchedulerPollPeriod: cfg.Retry.SchedulerPollPeriod,
		},
		app.Logger,
		app.Metrics,
	)

	app.Logger.Info().
		Str("stream", infraRedis.RetryStream).
		Str("group", cfg.Worker.ConsumerGroup).
		Str("consumer", cfg.InstanceID).
		Msg("Worker started, listening for queue entries...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return monitor.Run(gCtx) })
	g.Go(func() error { return w.Run(gCtx) })
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
