package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pocket/internal/adapters"
	"pocket/internal/amqp"
	"pocket/internal/backend"
	"pocket/internal/cli"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/services"
	"pocket/internal/worker"
)

const consumeRetryDelay = 5 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentWorker)
	logger.Info("Starting pocket-worker", log.FieldOperation, log.OpStartup)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	mirror, err := factory.CreateMirror(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err)
		os.Exit(1)
	}
	if mirror.Cleanup != nil {
		defer func() {
			if err := mirror.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup failed", log.FieldError, err)
			}
		}()
	}

	syncCfg := services.DefaultSyncProcessorConfig()
	syncCfg.BatchSize = cfg.SyncBatchSize
	syncCfg.PollInterval = cfg.SyncInterval
	syncCfg.MaxRetries = cfg.SyncMaxRetries
	processor := services.NewSyncProcessor(repo, mirror.Mirror, adapters.NewRecordLoader(repo), syncCfg, m, logger)

	g, gctx := errgroup.WithContext(ctx)

	if err := processor.Start(gctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, task reminders disabled")
	} else {
		scheduler, err := factory.CreateScheduler(ctx, backendCfg)
		if err != nil {
			logger.Error("Failed to initialize alert scheduler", log.FieldError, err)
			os.Exit(1)
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
			os.Exit(1)
		}
		defer client.Close()

		reminders := worker.NewReminderWorker(repo, scheduler.Scheduler, cfg.Location(), m, logger)
		g.Go(func() error {
			return consume(gctx, client, reminders, logger)
		})
	}

	<-gctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Sync processor stop failed", log.FieldError, err)
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}

// consume keeps the reminder consumer alive across broker disconnects until
// ctx ends.
func consume(ctx context.Context, client *amqp.Client, reminders *worker.ReminderWorker, logger *log.Logger) error {
	for {
		err := client.ConsumeTaskReminders(ctx, reminders.HandleTaskReminder)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("Reminder consumption interrupted, retrying",
			log.FieldError, err,
			"retry_in", consumeRetryDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(consumeRetryDelay):
		}
	}
}
