package shop

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Attempt is one outbound HTTP attempt as seen by interceptors. A replay
// after a token refresh is a separate attempt.
type Attempt struct {
	Method   string
	Path     string
	Headers  http.Header
	Retry    bool
	Metadata map[string]interface{}
}

// AttemptResult is the outcome of an attempt.
type AttemptResult struct {
	StatusCode int
	Error      error
}

// RequestInterceptor is called before an attempt is sent. Returning an error
// aborts the call.
type RequestInterceptor func(ctx context.Context, attempt *Attempt) error

// ResponseInterceptor is called after an attempt completes.
type ResponseInterceptor func(ctx context.Context, attempt *Attempt, result *AttemptResult) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) *InterceptorChain {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)

	return c
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) *InterceptorChain {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)

	return c
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, attempt *Attempt) error {
	if c == nil {
		return nil
	}

	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, attempt)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, attempt *Attempt, result *AttemptResult) error {
	if c == nil {
		return nil
	}

	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, attempt, result)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// LoggingInterceptor logs attempts.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, attempt *Attempt) error {
		logger.Debug("API Request", map[string]interface{}{
			"method": attempt.Method,
			"path":   attempt.Path,
			"retry":  attempt.Retry,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs attempt results.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, attempt *Attempt, result *AttemptResult) error {
		fields := map[string]interface{}{
			"method":      attempt.Method,
			"path":        attempt.Path,
			"status_code": result.StatusCode,
		}

		if result.Error != nil {
			fields["error"] = result.Error.Error()
			logger.Error("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// RateLimitInterceptor paces attempts to requestsPerSecond with a burst of one.
// A wait that cannot finish before the context deadline fails at once with an
// error matching context.DeadlineExceeded.
func RateLimitInterceptor(requestsPerSecond float64) RequestInterceptor {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), 1)

	return func(ctx context.Context, attempt *Attempt) error {
		err := limiter.Wait(ctx)
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("rate limit: %w", ctxErr)
		}

		return fmt.Errorf("rate limit: %w: %w", context.DeadlineExceeded, err)
	}
}

// HeaderInterceptor adds custom headers to attempts. Authorization is
// reserved for the pipeline and is ignored.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, attempt *Attempt) error {
		if attempt.Headers == nil {
			attempt.Headers = make(http.Header)
		}

		for key, value := range headers {
			if http.CanonicalHeaderKey(key) == "Authorization" {
				continue
			}

			attempt.Headers.Set(key, value)
		}

		return nil
	}
}

// RequestIDHeader carries a unique id per attempt.
const RequestIDHeader = "X-Request-ID"

// RequestIDInterceptor tags every attempt with a fresh X-Request-ID.
func RequestIDInterceptor() RequestInterceptor {
	return func(ctx context.Context, attempt *Attempt) error {
		if attempt.Headers == nil {
			attempt.Headers = make(http.Header)
		}

		attempt.Headers.Set(RequestIDHeader, uuid.NewString())

		return nil
	}
}

// Metrics are per-endpoint call statistics.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalRetries    int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector collects API metrics.
type MetricsCollector struct {
	mu       sync.Mutex
	metrics  map[string]*Metrics
	onChange func(endpoint string, metrics Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
	}
}

// SetOnChange sets a callback for when metrics change.
func (m *MetricsCollector) SetOnChange(fn func(endpoint string, metrics Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot of the metrics for an endpoint ("GET /products").
func (m *MetricsCollector) GetMetrics(endpoint string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if metrics, ok := m.metrics[endpoint]; ok {
		return *metrics, true
	}

	return Metrics{}, false
}

// MetricsRequestInterceptor records request start time.
func MetricsRequestInterceptor(collector *MetricsCollector) RequestInterceptor {
	return func(ctx context.Context, attempt *Attempt) error {
		if attempt.Metadata == nil {
			attempt.Metadata = make(map[string]interface{})
		}

		attempt.Metadata["start_time"] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records response metrics.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, attempt *Attempt, result *AttemptResult) error {
		endpoint := fmt.Sprintf("%s %s", attempt.Method, attempt.Path)

		collector.mu.Lock()

		metrics, ok := collector.metrics[endpoint]
		if !ok {
			metrics = &Metrics{}
			collector.metrics[endpoint] = metrics
		}

		metrics.TotalRequests++
		metrics.LastRequestTime = time.Now()

		if attempt.Retry {
			metrics.TotalRetries++
		}

		if startTime, ok := attempt.Metadata["start_time"].(time.Time); ok {
			metrics.TotalLatency += time.Since(startTime)
			metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)
		}

		if result.Error != nil || result.StatusCode >= 400 {
			metrics.TotalErrors++
		}

		snapshot := *metrics
		onChange := collector.onChange

		collector.mu.Unlock()

		if onChange != nil {
			onChange(endpoint, snapshot)
		}

		return nil
	}
}
