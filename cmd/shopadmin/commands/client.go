package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/internal/logging"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
	"github.com/fivetwenty-io/shopadmin/pkg/shopclient"
)

// session bundles a client with the resources it holds open.
type session struct {
	client shop.Client
	store  shop.TokenStore
	logger *logging.Logger
	config *Config
}

// Close releases the token store connection and flushes the logger.
func (s *session) Close() {
	if closer, ok := s.store.(io.Closer); ok {
		_ = closer.Close()
	}

	_ = s.logger.Sync()
}

// newLogger builds the CLI logger: warnings only, or everything with --verbose.
func newLogger(verbose bool) (*logging.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}

	return logging.Build(logging.Config{Level: level})
}

// newMetrics logs per-endpoint counters after every call with --verbose.
func newMetrics(verbose bool, logger shop.Logger) *shop.MetricsCollector {
	if !verbose {
		return nil
	}

	collector := shop.NewMetricsCollector()
	collector.SetOnChange(func(endpoint string, metrics shop.Metrics) {
		logger.Debug("Endpoint metrics", map[string]interface{}{
			"endpoint":        endpoint,
			"total_requests":  metrics.TotalRequests,
			"total_errors":    metrics.TotalErrors,
			"total_retries":   metrics.TotalRetries,
			"average_latency": metrics.AverageLatency.String(),
		})
	})

	return collector
}

// newTokenStore opens the token store selected by the configuration.
func newTokenStore(config *Config) (shop.TokenStore, error) {
	storeConfig := &shopclient.StoreConfig{
		Type: shopclient.StoreType(config.TokenStore),
		Key:  config.API,
	}

	switch config.TokenStore {
	case constants.TokenStoreFile:
		path, err := tokenFilePath(config)
		if err != nil {
			return nil, err
		}

		storeConfig.File = path
	case constants.TokenStoreNATS:
		storeConfig.NATS = &shopclient.NATSConfig{URL: config.NATSURL, Bucket: config.NATSBucket}
	}

	store, err := shopclient.NewTokenStore(storeConfig)
	if err != nil {
		return nil, fmt.Errorf("opening %s token store: %w", config.TokenStore, err)
	}

	return store, nil
}

// openSession creates a client for the configured API.
func openSession(ctx context.Context) (*session, error) {
	config := loadConfig()
	if config.API == "" {
		return nil, constants.ErrNoAPIConfigured
	}

	baseURL, err := shopclient.NormalizeBaseURL(config.API)
	if err != nil {
		return nil, err
	}

	config.API = baseURL

	logger, err := newLogger(config.Verbose)
	if err != nil {
		return nil, err
	}

	store, err := newTokenStore(config)
	if err != nil {
		return nil, err
	}

	client, err := shopclient.New(ctx, &shop.Config{
		BaseURL:    baseURL,
		TokenStore: store,
		Logger:     logger,
		Debug:      config.Verbose,
		RetryMax:   config.RetryMax,
		RateLimit:  config.RateLimit,
		Metrics:    newMetrics(config.Verbose, logger),
	})
	if err != nil {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}

		return nil, err
	}

	return &session{client: client, store: store, logger: logger, config: config}, nil
}

// requireLogin fails fast when no token is stored.
func (s *session) requireLogin() error {
	if s.client.Token() == "" {
		return constants.ErrNotAuthenticated
	}

	return nil
}
