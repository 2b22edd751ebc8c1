package client

import (
	"context"

	"github.com/fivetwenty-io/shopadmin/internal/auth"
	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/internal/http"
	"github.com/fivetwenty-io/shopadmin/internal/logging"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// Client implements the shop.Client interface.
type Client struct {
	httpClient *http.Client
	session    *auth.Session
	captcha    *auth.CaptchaClient
	pipeline   *Pipeline
	logger     shop.Logger

	// Resource clients
	products   *ProductsClient
	categories *CategoriesClient
}

var _ shop.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *shop.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// createInterceptorChains returns the built-in chain followed by the caller's.
// Every attempt carries its own X-Request-ID.
func createInterceptorChains(config *shop.Config, logger shop.Logger) []*shop.InterceptorChain {
	builtin := shop.NewInterceptorChain().
		AddRequestInterceptor(shop.RequestIDInterceptor())

	if len(config.Headers) > 0 {
		builtin.AddRequestInterceptor(shop.HeaderInterceptor(config.Headers))
	}

	if config.Metrics != nil {
		builtin.AddRequestInterceptor(shop.MetricsRequestInterceptor(config.Metrics))
		builtin.AddResponseInterceptor(shop.MetricsResponseInterceptor(config.Metrics))
	}

	if config.RateLimit > 0 {
		builtin.AddRequestInterceptor(shop.RateLimitInterceptor(config.RateLimit))
	}

	if config.Debug {
		builtin.AddRequestInterceptor(shop.LoggingInterceptor(logger))
		builtin.AddResponseInterceptor(shop.LoggingResponseInterceptor(logger))
	}

	chains := []*shop.InterceptorChain{builtin}
	if config.Interceptors != nil {
		chains = append(chains, config.Interceptors)
	}

	return chains
}

// New creates a new shop admin client. The base URL is used as given.
func New(ctx context.Context, config *shop.Config) (*Client, error) {
	if config == nil {
		return nil, shop.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, shop.ErrBaseURLRequired
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	store := config.TokenStore
	if store == nil {
		store = auth.NewMemoryStore()
	}

	httpClient := http.NewClient(config.BaseURL, createHTTPClientOptions(config)...)
	session := auth.NewSession(httpClient, store, logger)

	client := &Client{
		httpClient: httpClient,
		session:    session,
		captcha:    auth.NewCaptchaClient(httpClient),
		logger:     logger,
	}

	client.pipeline = NewPipeline(httpClient, session, logger, createInterceptorChains(config, logger)...)
	client.products = NewProductsClient(client.pipeline)
	client.categories = NewCategoriesClient(client.pipeline)

	logger.Debug("Client created", map[string]interface{}{
		"base_url": config.BaseURL,
		"state":    session.State().String(),
	})

	return client, nil
}

// Login implements shop.AuthClient.Login.
func (c *Client) Login(ctx context.Context, credentials shop.Credentials) (*shop.Session, error) {
	return c.session.Login(ctx, credentials)
}

// Logout implements shop.AuthClient.Logout.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Logout(ctx)
}

// IsAuthenticated implements shop.AuthClient.IsAuthenticated.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.session.IsAuthenticated(ctx)
}

// Refresh implements shop.AuthClient.Refresh.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.session.Refresh(ctx)
}

// FetchCaptcha implements shop.AuthClient.FetchCaptcha.
func (c *Client) FetchCaptcha(ctx context.Context) (*shop.Captcha, error) {
	return c.captcha.Fetch(ctx)
}

// State implements shop.AuthClient.State.
func (c *Client) State() shop.SessionState {
	return c.session.State()
}

// Token implements shop.AuthClient.Token.
func (c *Client) Token() string {
	return c.session.Token()
}

// Products implements shop.Client.Products.
func (c *Client) Products() shop.ProductsClient {
	return c.products
}

// Categories implements shop.Client.Categories.
func (c *Client) Categories() shop.CategoriesClient {
	return c.categories
}

// Do implements shop.Client.Do.
func (c *Client) Do(ctx context.Context, req *shop.Request) (*shop.Payload, error) {
	return c.pipeline.Execute(ctx, req)
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.httpClient.BaseURL()
}
