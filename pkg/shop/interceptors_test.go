package shop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.messages = append(l.messages, "debug:"+msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{}) { l.messages = append(l.messages, "info:"+msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) { l.messages = append(l.messages, "warn:"+msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.messages = append(l.messages, "error:"+msg) }

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := shop.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, attempt *shop.Attempt) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, attempt *shop.Attempt) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(ctx, &shop.Attempt{Method: "GET", Path: "/products"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	called := false

	chain := shop.NewInterceptorChain().
		AddResponseInterceptor(func(ctx context.Context, attempt *shop.Attempt, result *shop.AttemptResult) error {
			return errStop
		}).
		AddResponseInterceptor(func(ctx context.Context, attempt *shop.Attempt, result *shop.AttemptResult) error {
			called = true

			return nil
		})

	err := chain.ExecuteResponseInterceptors(context.Background(), &shop.Attempt{}, &shop.AttemptResult{StatusCode: 200})
	require.ErrorIs(t, err, errStop)
	assert.False(t, called)
}

func TestInterceptorChain_Nil(t *testing.T) {
	t.Parallel()

	var chain *shop.InterceptorChain

	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), &shop.Attempt{}))
	require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), &shop.Attempt{}, &shop.AttemptResult{}))
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := shop.HeaderInterceptor(map[string]string{
		"X-Custom-Header": "custom-value",
		"authorization":   "Bearer forged",
	})

	attempt := &shop.Attempt{Method: "GET", Path: "/products"}

	require.NoError(t, interceptor(context.Background(), attempt))
	assert.Equal(t, "custom-value", attempt.Headers.Get("X-Custom-Header"))
	assert.Empty(t, attempt.Headers.Get("Authorization"))
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := shop.RequestIDInterceptor()

	first := &shop.Attempt{}
	second := &shop.Attempt{}

	require.NoError(t, interceptor(context.Background(), first))
	require.NoError(t, interceptor(context.Background(), second))

	id := first.Headers.Get(shop.RequestIDHeader)

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, second.Headers.Get(shop.RequestIDHeader))
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := shop.RateLimitInterceptor(20)
	ctx := context.Background()

	start := time.Now()

	for range 3 {
		require.NoError(t, interceptor(ctx, &shop.Attempt{}))
	}

	// Burst of one: the second and third attempts wait 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	require.ErrorIs(t, interceptor(cancelled, &shop.Attempt{}), context.Canceled)
}

func TestRateLimitInterceptor_DeadlineTooShort(t *testing.T) {
	t.Parallel()

	interceptor := shop.RateLimitInterceptor(1)
	require.NoError(t, interceptor(context.Background(), &shop.Attempt{}))

	// The next slot is a second away, past the deadline, so the wait fails
	// while the context is still live.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := interceptor(ctx, &shop.Attempt{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, ctx.Err())
	assert.Contains(t, err.Error(), "rate limit")
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	attempt := &shop.Attempt{Method: "GET", Path: "/products"}

	require.NoError(t, shop.LoggingInterceptor(logger)(context.Background(), attempt))
	require.NoError(t, shop.LoggingResponseInterceptor(logger)(context.Background(), attempt, &shop.AttemptResult{StatusCode: 200}))
	require.NoError(t, shop.LoggingResponseInterceptor(logger)(context.Background(), attempt, &shop.AttemptResult{
		StatusCode: 500,
		Error:      shop.NewError(shop.KindServer, nil),
	}))

	assert.Equal(t, []string{"debug:API Request", "debug:API Response", "error:API Response Error"}, logger.messages)
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := shop.NewMetricsCollector()

	var changes int

	collector.SetOnChange(func(endpoint string, metrics shop.Metrics) {
		changes++

		assert.Equal(t, "GET /products", endpoint)
	})

	requestInterceptor := shop.MetricsRequestInterceptor(collector)
	responseInterceptor := shop.MetricsResponseInterceptor(collector)
	ctx := context.Background()

	first := &shop.Attempt{Method: "GET", Path: "/products"}
	require.NoError(t, requestInterceptor(ctx, first))
	require.NoError(t, responseInterceptor(ctx, first, &shop.AttemptResult{StatusCode: 401}))

	replay := &shop.Attempt{Method: "GET", Path: "/products", Retry: true}
	require.NoError(t, requestInterceptor(ctx, replay))
	require.NoError(t, responseInterceptor(ctx, replay, &shop.AttemptResult{StatusCode: 200}))

	metrics, ok := collector.GetMetrics("GET /products")
	require.True(t, ok)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.Equal(t, int64(1), metrics.TotalRetries)
	assert.Equal(t, 2, changes)

	_, ok = collector.GetMetrics("GET /categories")
	assert.False(t, ok)
}
