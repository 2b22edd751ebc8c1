package shop

import (
	"context"
	"time"
)

// ProductsClient defines operations on the product collection.
type ProductsClient interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int) (*Product, error)
	Create(ctx context.Context, input *ProductInput) (*Product, error)
	Update(ctx context.Context, id int, input *ProductInput) (*Product, error)
	Remove(ctx context.Context, id int) error
	// SetAvailability toggles is_available, keeping every other field.
	SetAvailability(ctx context.Context, id int, available bool) (*Product, error)
}

// CategoriesClient defines operations on the category collection.
type CategoriesClient interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int) (*Category, error)
	Create(ctx context.Context, input *CategoryInput) (*Category, error)
	Update(ctx context.Context, id int, input *CategoryInput) (*Category, error)
	Remove(ctx context.Context, id int) error
}

// AuthClient drives the session state machine.
type AuthClient interface {
	Login(ctx context.Context, credentials Credentials) (*Session, error)
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	Refresh(ctx context.Context) (string, error)
	FetchCaptcha(ctx context.Context) (*Captcha, error)
	State() SessionState
	// Token returns the current session token, or "" when unauthenticated.
	Token() string
}

// Client is the full admin API client.
type Client interface {
	AuthClient
	Products() ProductsClient
	Categories() CategoriesClient
	// Do executes an arbitrary request through the authenticated pipeline.
	Do(ctx context.Context, req *Request) (*Payload, error)
}

// SessionState is the state of the session state machine.
type SessionState int

// Session states.
const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateRefreshing
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// TokenStore holds the current session token. Get returns "" when no token
// is present. Implementations must make each call atomic with respect to the
// others.
type TokenStore interface {
	Get() string
	Set(token string) error
	Clear() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a shop.Client.
//
// # Token storage
//
// TokenStore selects where the session token lives. When nil, an in-memory
// store is used and the session is lost when the process exits. The
// shopclient package provides file, keyring and NATS backed stores that
// survive restarts. A persisted store that already holds a token starts the
// session authenticated.
//
// # Timeouts, retries, and cancellation
//
// Per-request deadlines and cancellation should be controlled via the context
// passed to client methods. A cancelled request never triggers a token
// refresh. RetryMax enables transport-level retries of idempotent reads only;
// it defaults to 0 so failures surface immediately.
type Config struct {
	// BaseURL: base URL of the REST API (e.g., "http://127.0.0.1:8000/api").
	// shopclient.New trims a trailing slash and adds "https://" if no scheme
	// is present.
	BaseURL string

	// TokenStore: where the session token is kept. Defaults to memory.
	TokenStore TokenStore

	// HTTPTimeout: overall timeout of a single HTTP attempt.
	HTTPTimeout time.Duration
	// RetryMax: transport retries for GET/HEAD on connection errors, 429 and 5xx.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// RateLimit: maximum requests per second sent by this client. 0 disables pacing.
	RateLimit float64
	// Debug: enables HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// Headers: extra headers sent on every API call. Authorization is ignored.
	Headers map[string]string
	// Metrics: when set, collects per-endpoint request counts and latency.
	Metrics *MetricsCollector
	// Interceptors: optional request/response hooks run on every attempt.
	Interceptors *InterceptorChain
}
