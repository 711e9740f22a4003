package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mdaamer248/Athelete/internal/adapter"
	"github.com/mdaamer248/Athelete/internal/config"
	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/logger"
	"github.com/mdaamer248/Athelete/internal/oracle"
	jsprovider "github.com/mdaamer248/Athelete/internal/providers/jetstream"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadOracleConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "oracle",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting attestation oracle")

	// Connect to NATS and make sure the attestation stream exists
	publisher, err := jsprovider.NewPublisher(jsprovider.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))

	// Wire the quote source and the event signer
	quotes := oracle.NewHTTPQuoteSource(cfg.Oracle.QuoteURL, adapter.NewHTTPClient(cfg.Oracle.QuoteTimeout))
	signer := oracle.NewSigner(cfg.Oracle.Secret)

	scheduler := oracle.NewScheduler(
		&oracle.SchedulerConfig{
			TickInterval:            cfg.Oracle.TickInterval,
			GracePeriodTicks:        cfg.Oracle.GracePeriodTicks,
			SubmissionIntervalTicks: cfg.Oracle.SubmissionInterval,
			ViewsPair:               cfg.Oracle.ViewsPair,
			VotesPair:               cfg.Oracle.VotesPair,
			TargetClassID:           domain.ClassID(cfg.Oracle.TargetClassID),
			TargetInstanceID:        domain.InstanceID(cfg.Oracle.TargetInstanceID),
		},
		quotes,
		publisher,
		signer,
		adapter.NewClock(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", scheduler.Name()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", scheduler.Name()))
	}
	cancel()

	logger.Info("Oracle stopped")
}
