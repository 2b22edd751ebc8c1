package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shophttp "github.com/fivetwenty-io/shopadmin/internal/http"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{}) { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{}) { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/products", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Empty(t, request.Header.Values("Authorization"))

			_ = json.NewEncoder(writer).Encode(map[string]interface{}{"data": []map[string]interface{}{{"id": 1}}})
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL + "/api/")

		resp, err := client.Get(context.Background(), "/products", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t, `{"data":[{"id":1}]}`, string(resp.Body))
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/products", request.URL.Path)
			assert.Equal(t, "page=2", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)

		resp, err := client.Get(context.Background(), "/products", url.Values{"page": []string{"2"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with JSON body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "a@b.com", body["email"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)

		resp, err := client.Post(context.Background(), "/login", map[string]string{"email": "a@b.com"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("request with multipart form", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			require.NoError(t, request.ParseMultipartForm(1<<20))
			assert.Equal(t, "Chair", request.FormValue("name"))

			file, header, err := request.FormFile("image")
			require.NoError(t, err)

			defer func() { _ = file.Close() }()

			content, _ := io.ReadAll(file)
			assert.Equal(t, "chair.png", header.Filename)
			assert.Equal(t, []byte{0x89, 0x50}, content)

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)
		form := shop.NewForm().Set("name", "Chair").AddFile("image", "chair.png", []byte{0x89, 0x50})

		resp, err := client.PostForm(context.Background(), "/products", form)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("not found response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"message":"Product not found"}`))
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)

		resp, err := client.Get(context.Background(), "/products/404", nil)
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, shop.IsNotFound(err))

		shopErr := &shop.Error{}
		require.True(t, errors.As(err, &shopErr))
		assert.Equal(t, "Product not found", shopErr.Message)
	})

	t.Run("validation response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = writer.Write([]byte(`{"message":"The given data was invalid.","errors":{"price":["The price must be a number."]}}`))
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)

		_, err := client.PostForm(context.Background(), "/products", shop.NewForm().Set("price", "x"))
		require.Error(t, err)
		assert.True(t, shop.IsValidation(err))

		shopErr := &shop.Error{}
		require.True(t, errors.As(err, &shopErr))
		assert.Equal(t, "The price must be a number.", shopErr.Fields["price"])
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)

		req := &shophttp.Request{
			Method:  "GET",
			Path:    "/products",
			Headers: http.Header{"X-Custom-Header": []string{"custom-value"}},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := shophttp.NewClient(server.URL, shophttp.WithLogger(logger), shophttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/products", nil)
		require.NoError(t, err)

		require.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})

	t.Run("unreachable server is a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
		serverURL := server.URL
		server.Close()

		client := shophttp.NewClient(serverURL)

		resp, err := client.Get(context.Background(), "/products", nil)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, shop.IsNetwork(err))
	})

	t.Run("cancelled context is not a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := shophttp.NewClient(server.URL)

		_, err := client.Get(ctx, "/products", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, shop.IsNetwork(err))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries GET on 5xx errors when enabled", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL, shophttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/products", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("never retries POST", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL, shophttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Post(context.Background(), "/products/1/delete", nil)
		require.Error(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, shop.KindServer, shop.KindOf(err))
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("does not retry by default", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL)

		resp, err := client.Get(context.Background(), "/products", nil)
		require.Error(t, err)
		assert.Equal(t, 500, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("does not retry on 401", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := shophttp.NewClient(server.URL, shophttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/me", nil)
		require.Error(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.ErrorIs(t, err, shop.ErrUnauthorized)
		assert.Equal(t, int32(1), attempts.Load())
	})
}
