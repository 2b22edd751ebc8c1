package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// Logger is the logging interface used by the transport.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request is a single HTTP request. Body is JSON-encoded; Form, when set,
// is sent as multipart/form-data instead.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Form    *shop.Form
	Headers http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client is the HTTP transport. It carries no session state.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	logger     Logger
	debug      bool
	userAgent  string
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = &leveledLogger{logger: logger}
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithRetryConfig enables transport retries of idempotent requests.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// NewClient creates a transport rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.CheckRetry = idempotentRetryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: retryClient,
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type methodKey struct{}

// idempotentRetryPolicy retries only GET and HEAD, using the default policy
// for those. Writes are never replayed by the transport.
func idempotentRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	method, _ := ctx.Value(methodKey{}).(string)
	if method != http.MethodGet && method != http.MethodHead {
		return false, nil
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Do sends the request. A non-nil Response is returned whenever the server
// answered; statuses >= 400 also return a classified *shop.Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	ctx = context.WithValue(ctx, methodKey{}, req.Method)

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, c.buildURL(req), rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)

	if contentType != "" {
		httpReq.Header.Set(constants.HeaderContentType, contentType)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	start := time.Now()

	c.logRequest(req)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ctxErr)
		}

		return nil, shop.NewError(shop.KindNetwork, err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, shop.NewError(shop.KindNetwork, fmt.Errorf("reading response body: %w", err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	c.logResponse(req, resp, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		return resp, shop.ClassifyStatus(resp.StatusCode, resp.Body)
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a JSON POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// PostForm performs a multipart POST request.
func (c *Client) PostForm(ctx context.Context, path string, form *shop.Form) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Form: form})
}

func (c *Client) buildURL(req *Request) string {
	u := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	return u
}

func encodeBody(req *Request) ([]byte, string, error) {
	if req.Form != nil {
		return encodeMultipart(req.Form)
	}

	if req.Body == nil {
		return nil, "", nil
	}

	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling JSON: %w", err)
	}

	return data, constants.ContentTypeJSON, nil
}

func encodeMultipart(form *shop.Form) ([]byte, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form.Fields))
	for key := range form.Fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		for _, value := range form.Fields[key] {
			err := writer.WriteField(key, value)
			if err != nil {
				return nil, "", fmt.Errorf("writing field %s: %w", key, err)
			}
		}
	}

	for _, file := range form.Files {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part %s: %w", file.FieldName, err)
		}

		_, err = part.Write(file.Content)
		if err != nil {
			return nil, "", fmt.Errorf("writing file part %s: %w", file.FieldName, err)
		}
	}

	err := writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (c *Client) logRequest(req *Request) {
	if !c.debug || c.logger == nil {
		return
	}

	c.logger.Debug("HTTP Request", map[string]interface{}{
		"method":    req.Method,
		"path":      req.Path,
		"multipart": req.Form != nil,
	})
}

func (c *Client) logResponse(req *Request, resp *Response, elapsed time.Duration) {
	if !c.debug || c.logger == nil {
		return
	}

	c.logger.Debug("HTTP Response", map[string]interface{}{
		"method":      req.Method,
		"path":        req.Path,
		"status_code": resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
		"body_bytes":  len(resp.Body),
	})
}

// leveledLogger routes retryablehttp's logging into Logger. Per-attempt debug
// chatter is dropped; the transport logs its own request/response records.
type leveledLogger struct {
	logger Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, kvFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, kvFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if key == "request" {
			continue
		}

		fields[key] = keysAndValues[i+1]
	}

	return fields
}
