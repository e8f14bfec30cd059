package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"optiscope/internal/config"
	"optiscope/internal/options"
	"optiscope/internal/relay"
	"optiscope/internal/upstream"
	"optiscope/internal/util"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatalf("loading .env: %v", err)
	}

	// Load config.
	cfgPath := "config/optiscope.yaml"
	if p := os.Getenv("OPTISCOPE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	theta := upstream.New(string(relay.ProviderThetaData), upstream.Config{
		BaseURL:       cfg.ThetaData.BaseURL,
		Timeout:       cfg.ThetaData.Timeout,
		RatePerSecond: cfg.ThetaData.RatePerSec,
		Burst:         cfg.ThetaData.Burst,
		Logger:        logger,
	})
	yahoo := upstream.New(string(relay.ProviderYahoo), upstream.Config{
		BaseURL:   cfg.Yahoo.BaseURL,
		Timeout:   cfg.Yahoo.Timeout,
		UserAgent: cfg.Yahoo.UserAgent,
		Logger:    logger,
	})

	rl := relay.New(theta, yahoo, logger)
	agg := options.NewAggregator(rl,
		options.WithMaxConcurrent(cfg.Options.MaxConcurrent),
		options.WithLogger(logger),
	)
	srv := relay.NewServer(rl, agg, logger)

	// Start HTTP server.
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("relay listening",
			"addr", httpServer.Addr,
			"thetadata", theta.BaseURL(),
			"yahoo", yahoo.BaseURL(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down relay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
