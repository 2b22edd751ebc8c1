// Package shopclient provides the main entry point for creating shop admin API clients
package shopclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/shopadmin/internal/client"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// New creates a new shop admin API client.
func New(ctx context.Context, config *shop.Config) (shop.Client, error) {
	if config == nil {
		return nil, shop.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, shop.ErrBaseURLRequired
	}

	baseURL, err := NormalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	config.BaseURL = baseURL

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeBaseURL trims a trailing slash and adds "https://" when no scheme
// is present.
func NormalizeBaseURL(raw string) (string, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("%w: %s", shop.ErrNoHostInURL, raw)
	}

	return baseURL, nil
}

// NewWithBaseURL creates a client with an in-memory session.
func NewWithBaseURL(ctx context.Context, baseURL string) (shop.Client, error) {
	return New(ctx, &shop.Config{BaseURL: baseURL})
}

// NewWithTokenStore creates a client whose session lives in store.
func NewWithTokenStore(ctx context.Context, baseURL string, store shop.TokenStore) (shop.Client, error) {
	return New(ctx, &shop.Config{BaseURL: baseURL, TokenStore: store})
}
