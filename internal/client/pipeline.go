package client

import (
	"context"
	"net/http"

	"github.com/fivetwenty-io/shopadmin/internal/auth"
	"github.com/fivetwenty-io/shopadmin/internal/constants"
	shophttp "github.com/fivetwenty-io/shopadmin/internal/http"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// TokenSource supplies the session token and refreshes it after a 401.
type TokenSource interface {
	Token() string
	RefreshFrom(ctx context.Context, stale string) (string, error)
	Invalidate(token string) error
}

// Executor runs a request through the authenticated pipeline.
type Executor interface {
	Execute(ctx context.Context, req *shop.Request) (*shop.Payload, error)
}

// Pipeline attaches the session token to every authenticated request and
// handles a 401 with exactly one refresh followed by exactly one replay.
type Pipeline struct {
	transport    auth.Doer
	tokens       TokenSource
	interceptors []*shop.InterceptorChain
	logger       shop.Logger
}

// NewPipeline creates a pipeline. Interceptor chains run in order on every
// attempt, including the replay after a refresh.
func NewPipeline(transport auth.Doer, tokens TokenSource, logger shop.Logger, chains ...*shop.InterceptorChain) *Pipeline {
	return &Pipeline{
		transport:    transport,
		tokens:       tokens,
		interceptors: chains,
		logger:       logger,
	}
}

// Execute sends req and returns the normalized payload.
func (p *Pipeline) Execute(ctx context.Context, req *shop.Request) (*shop.Payload, error) {
	var token string
	if req.ExpectsAuth {
		token = p.tokens.Token()
	}

	resp, err := p.send(ctx, req, token, false)
	if err == nil {
		return shop.NewPayload(resp.StatusCode, resp.Body), nil
	}

	if !req.ExpectsAuth || ctx.Err() != nil || shop.KindOf(err) != shop.KindUnauthorized {
		return nil, err
	}

	fresh, refreshErr := p.tokens.RefreshFrom(ctx, token)
	if refreshErr != nil {
		if ctx.Err() != nil {
			return nil, refreshErr
		}

		return nil, &shop.Error{
			Kind:       shop.KindUnauthorized,
			Message:    "session expired, please log in again",
			StatusCode: http.StatusUnauthorized,
			Err:        refreshErr,
		}
	}

	resp, err = p.send(ctx, req, fresh, true)
	if err != nil {
		if shop.KindOf(err) == shop.KindUnauthorized {
			p.logger.Warn("Request rejected after token refresh", map[string]interface{}{
				"method": req.Method,
				"path":   req.Path,
			})

			clearErr := p.tokens.Invalidate(fresh)
			if clearErr != nil {
				p.logger.Error("Failed to clear rejected session token", map[string]interface{}{"error": clearErr.Error()})
			}
		}

		return nil, err
	}

	return shop.NewPayload(resp.StatusCode, resp.Body), nil
}

func (p *Pipeline) send(ctx context.Context, req *shop.Request, token string, retry bool) (*shophttp.Response, error) {
	attempt := &shop.Attempt{
		Method:  req.Method,
		Path:    req.Path,
		Headers: make(http.Header),
		Retry:   retry,
	}

	for _, chain := range p.interceptors {
		err := chain.ExecuteRequestInterceptors(ctx, attempt)
		if err != nil {
			return nil, err
		}
	}

	headers := attempt.Headers.Clone()
	headers.Del(constants.HeaderAuthorization)

	if token != "" {
		headers.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}

	resp, err := p.transport.Do(ctx, &shophttp.Request{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Body:    req.JSON,
		Form:    req.Form,
		Headers: headers,
	})

	result := &shop.AttemptResult{Error: err}
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}

	for _, chain := range p.interceptors {
		interceptErr := chain.ExecuteResponseInterceptors(ctx, attempt, result)
		if interceptErr != nil && err == nil {
			return nil, interceptErr
		}
	}

	return resp, err
}
