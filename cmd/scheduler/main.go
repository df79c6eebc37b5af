package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/simaogato/recurring-ledger/internal/adapter/amqp"
	"github.com/simaogato/recurring-ledger/internal/app"
	"github.com/simaogato/recurring-ledger/internal/config"
	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
	"github.com/simaogato/recurring-ledger/internal/usecase/execution"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "compute due executions without persisting them")
	once := flag.Bool("once", false, "run a single batch and exit")
	flag.Parse()

	cfg := config.Load()

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Configuration validation failed")
	}

	stores, err := app.OpenStores(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer stores.Close()

	services := app.NewServices(cfg, stores, domain.SystemClock{}, logger)

	// Execution events are optional; the batch runs the same without a broker
	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize AMQP publisher, continuing without execution events")
		} else {
			defer publisher.Close()
			services.Engine.Notifier = publisher
		}
	}

	mode := domain.ModeExecute
	if *dryRun {
		mode = domain.ModeDryRun
	}
	req := execution.RunRequest{
		Mode:           mode,
		OwnerID:        uuid.Nil,
		MaxDaysOverdue: app.Window(cfg).MaxDaysOverdue,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.WithFields(logrus.Fields{
		"interval": cfg.SchedulerInterval.String(),
		"mode":     string(mode),
		"workers":  services.Engine.Workers,
	}).Info("Scheduler.Start")

	// Run initial processing on startup
	runBatch(ctx, services.Engine, req, logger)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.SchedulerInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runBatch(ctx, services.Engine, req, logger)
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	cancel()

	select {
	case <-done:
		logger.Info("Scheduler.Stop")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}

// runBatch runs one engine batch. Per-series failures are already in the result; only log them here.
func runBatch(ctx context.Context, engine *execution.Engine, req execution.RunRequest, logger logrus.FieldLogger) {
	result, err := engine.Run(ctx, req)
	if err != nil && result == nil {
		logger.WithError(err).Error("Scheduler.Run.Failed")
		return
	}
	if err != nil {
		logger.WithError(err).Warn("Scheduler.Run.Interrupted")
	}

	for _, failure := range result.Failed {
		logger.WithFields(logrus.Fields{
			"series_id":   failure.SeriesID,
			"series_name": failure.SeriesName,
			"error":       failure.Error,
		}).Warn("Scheduler.Series.Failed")
	}
}
