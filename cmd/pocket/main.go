package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pocket/internal/adapters"
	"pocket/internal/amqp"
	"pocket/internal/analytics"
	"pocket/internal/auth"
	"pocket/internal/backend"
	"pocket/internal/cli"
	"pocket/internal/config"
	apphttp "pocket/internal/http"
	"pocket/internal/log"
	"pocket/internal/metrics"
	"pocket/internal/services"
	"pocket/internal/stats"
	"pocket/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting pocket server", log.FieldOperation, log.OpStartup, "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()
	loc := cfg.Location()
	clock := services.LocalClock(loc)
	policy, _ := stats.ParseStreakPolicy(cfg.StreakPolicy)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// Reminder publication is best effort; the API runs without a broker.
	var publisher services.ReminderPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, task reminders disabled",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	var remote services.Analyzer
	if cfg.AnalyticsURL != "" {
		remote = analytics.NewClient(cfg.AnalyticsURL, cfg.AnalyticsTimeout)
	}

	syncProcessor, cleanup := newSyncProcessor(ctx, cfg, repo, m, logger)
	defer cleanup()

	srv, err := apphttp.NewServer(cfg, apphttp.Deps{
		Storage:      repo,
		Auth:         auth.NewPasswordAuthenticator(repo),
		Tokens:       auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Transactions: services.NewTransactionService(repo, m, clock),
		Tasks:        services.NewTaskService(repo, publisher, m, policy, clock),
		Payouts:      services.NewPayoutService(repo, m, clock),
		Analytics:    services.NewAnalyticsService(repo, remote, m, clock),
		Sync:         syncProcessor,
		Metrics:      m,
		Logger:       logger,
		Location:     loc,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

// newSyncProcessor builds the processor behind the manual sync endpoints.
// The polling loop runs in pocket-worker; a nil processor disables the
// endpoints.
func newSyncProcessor(ctx context.Context, cfg *config.Config, repo *storage.SQLiteRepository, m *metrics.Metrics, logger *log.Logger) (*services.SyncProcessor, func()) {
	noop := func() {}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Warn("Sync disabled", log.FieldError, err)
		return nil, noop
	}
	result, err := backend.NewFactory(logger).CreateMirror(ctx, backendCfg)
	if err != nil {
		logger.Warn("Sync disabled, mirror unavailable", log.FieldError, err)
		return nil, noop
	}

	syncCfg := services.DefaultSyncProcessorConfig()
	syncCfg.BatchSize = cfg.SyncBatchSize
	syncCfg.PollInterval = cfg.SyncInterval
	syncCfg.MaxRetries = cfg.SyncMaxRetries

	processor := services.NewSyncProcessor(repo, result.Mirror, adapters.NewRecordLoader(repo), syncCfg, m, logger)
	return processor, func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup failed", log.FieldError, err)
			}
		}
	}
}
