package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"batchfetch/internal/apifetch"
	"batchfetch/internal/config"
	"batchfetch/internal/dispatch"
	"batchfetch/internal/fetcher"
	"batchfetch/internal/transaction"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.json", "path to config file")
	requestsPath := flag.String("requests", "requests.json", "path to a JSON array of request descriptors")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel)
	logger.Info().
		Str("config", *configPath).
		Str("baseUrl", cfg.BaseURL).
		Int("batchMaxWait", cfg.Batch.MaxWait).
		Int("batchMaxSize", cfg.Batch.MaxSize).
		Msg("starting batchfetch")

	requests, err := loadRequests(*requestsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load requests")
	}

	client := fetcher.NewClient(fetcher.Config{
		BaseURL:        cfg.BaseURL,
		RequestTimeout: cfg.GetRequestTimeoutDuration(),
		Logger:         logger,
	})
	registry := transaction.NewInMemoryRegistry(cfg.Batch.GetMaxWaitDuration(), cfg.Batch.MaxSize, logger)
	dispatcher := dispatch.NewDispatcher(client, registry, logger)

	ctx := context.Background()

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req *apifetch.Request) {
			defer wg.Done()

			body, err := dispatcher.Dispatch(ctx, req)
			if err != nil {
				logger.Error().
					Err(err).
					Int("index", i).
					Str("method", req.Method).
					Str("path", req.Path).
					Msg("request failed")
				return
			}
			logger.Info().
				Int("index", i).
				Str("method", req.Method).
				Str("path", req.Path).
				RawJSON("body", body).
				Msg("request succeeded")
		}(i, req)
	}

	wg.Wait()
	registry.Close(ctx)
}

// loadRequests parses a JSON file holding an array of request descriptors
func loadRequests(path string) ([]*apifetch.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var requests []*apifetch.Request
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
