package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	shophttp "github.com/fivetwenty-io/shopadmin/internal/http"
	"github.com/fivetwenty-io/shopadmin/internal/logging"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// Doer sends a single HTTP request.
type Doer interface {
	Do(ctx context.Context, req *shophttp.Request) (*shophttp.Response, error)
}

type tokenResponse struct {
	Token string    `json:"token"`
	User  shop.User `json:"user"`
}

// Session is the authentication state machine. It owns the token store and
// is the only component that writes to it.
type Session struct {
	transport Doer
	store     shop.TokenStore
	logger    shop.Logger

	mu    sync.RWMutex
	state shop.SessionState
	user  shop.User

	// tokenMu serializes every write to store.
	tokenMu sync.Mutex

	refreshGroup singleflight.Group
}

// NewSession creates a session. A store that already holds a token starts
// the session authenticated.
func NewSession(transport Doer, store shop.TokenStore, logger shop.Logger) *Session {
	if store == nil {
		store = NewMemoryStore()
	}

	if logger == nil {
		logger = logging.NewNop()
	}

	session := &Session{
		transport: transport,
		store:     store,
		logger:    logger,
		state:     shop.StateUnauthenticated,
	}

	if store.Get() != "" {
		session.state = shop.StateAuthenticated
	}

	return session
}

// Token returns the current token, or "" when unauthenticated.
func (s *Session) Token() string {
	return s.store.Get()
}

// State returns the current state.
func (s *Session) State() shop.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// User returns the user record from the last login, refresh or auth check.
func (s *Session) User() shop.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user
}

func (s *Session) setState(state shop.SessionState, user shop.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	if user != nil {
		s.user = user
	}
}

// Login exchanges credentials for a token. The request carries no
// Authorization header.
func (s *Session) Login(ctx context.Context, credentials shop.Credentials) (*shop.Session, error) {
	resp, err := s.transport.Do(ctx, &shophttp.Request{
		Method: http.MethodPost,
		Path:   constants.APIPathLogin,
		Body:   credentials,
	})
	if err != nil {
		return nil, classifyLoginError(ctx, resp, err)
	}

	var body tokenResponse

	err = json.Unmarshal(shop.NormalizeEnvelope(resp.Body), &body)
	if err != nil {
		return nil, &shop.Error{Kind: shop.KindServer, Message: "malformed login response", StatusCode: resp.StatusCode, Err: err}
	}

	if body.Token == "" {
		return nil, &shop.Error{Kind: shop.KindServer, Message: "malformed login response", StatusCode: resp.StatusCode, Err: shop.ErrMissingToken}
	}

	s.tokenMu.Lock()

	err = s.store.Set(body.Token)
	if err != nil {
		s.tokenMu.Unlock()

		return nil, fmt.Errorf("storing session token: %w", err)
	}

	s.setState(shop.StateAuthenticated, body.User)
	s.tokenMu.Unlock()

	s.logger.Info("Logged in", map[string]interface{}{"email": credentials.Email})

	return &shop.Session{Token: body.Token, User: body.User}, nil
}

func classifyLoginError(ctx context.Context, resp *shophttp.Response, err error) error {
	if ctx.Err() != nil || resp == nil {
		return err
	}

	message, fields := shop.ParseErrorBody(resp.Body)

	var kind shop.ErrorKind

	switch {
	case hasField(fields, "captcha") && isClientError(resp.StatusCode):
		kind = shop.KindCaptchaMismatch
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		hasField(fields, "email", "password") && isClientError(resp.StatusCode):
		kind = shop.KindInvalidCredentials
	default:
		kind = shop.KindServer
	}

	shopErr := shop.NewError(kind, nil)
	shopErr.StatusCode = resp.StatusCode
	shopErr.Fields = fields

	if message != "" {
		shopErr.Message = message
	}

	return shopErr
}

// isClientError reports a 4xx status other than 429, which is a server-side
// condition rather than a rejection of the credentials.
func isClientError(status int) bool {
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		status != http.StatusTooManyRequests
}

func hasField(fields map[string]string, names ...string) bool {
	for _, name := range names {
		if _, ok := fields[name]; ok {
			return true
		}
	}

	return false
}

// Logout ends the session. The token is always cleared locally; a failing
// server call is only logged. The returned error is non-nil only when the
// local store could not be cleared.
func (s *Session) Logout(ctx context.Context) error {
	token := s.store.Get()

	if token != "" {
		_, err := s.transport.Do(ctx, &shophttp.Request{
			Method:  http.MethodPost,
			Path:    constants.APIPathLogout,
			Headers: bearer(token),
		})
		if err != nil {
			s.logger.Warn("Server logout failed, clearing local session anyway", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return s.clear("logout")
}

// IsAuthenticated checks the session against the server. Without a token it
// returns false and makes no call. A 401 triggers one refresh and one more
// check. Every other failure yields false.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token := s.store.Get()
	if token == "" {
		return false
	}

	err := s.whoami(ctx, token)
	if err == nil {
		return true
	}

	if ctx.Err() != nil || shop.KindOf(err) != shop.KindUnauthorized {
		s.logger.Debug("Auth check failed", map[string]interface{}{"error": err.Error()})

		return false
	}

	fresh, err := s.RefreshFrom(ctx, token)
	if err != nil {
		return false
	}

	return s.whoami(ctx, fresh) == nil
}

func (s *Session) whoami(ctx context.Context, token string) error {
	resp, err := s.transport.Do(ctx, &shophttp.Request{
		Method:  http.MethodGet,
		Path:    constants.APIPathMe,
		Headers: bearer(token),
	})
	if err != nil {
		return err
	}

	data := shop.NormalizeEnvelope(resp.Body)
	if len(data) == 0 {
		return shop.NewError(shop.KindServer, shop.ErrEmptyPayload)
	}

	var wrapped struct {
		User shop.User `json:"user"`
	}

	if json.Unmarshal(data, &wrapped) == nil && wrapped.User != nil {
		s.setState(shop.StateAuthenticated, wrapped.User)

		return nil
	}

	var user shop.User
	if json.Unmarshal(data, &user) == nil && user != nil {
		s.setState(shop.StateAuthenticated, user)
	}

	return nil
}

// Refresh exchanges the current token for a new one.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	return s.RefreshFrom(ctx, s.store.Get())
}

// RefreshFrom refreshes a token that was rejected by the server. If the store
// already holds a different token, that one is returned without a call.
// Concurrent callers presenting the same stale token share one refresh. A
// cancelled context never starts a refresh; cancelling a waiting caller does
// not abort the shared call.
func (s *Session) RefreshFrom(ctx context.Context, stale string) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}

	current := s.store.Get()
	if current != "" && current != stale {
		return current, nil
	}

	if current == "" {
		return "", shop.NewError(shop.KindSessionExpired, nil)
	}

	result := s.refreshGroup.DoChan(stale, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("refresh: %w", ctx.Err())
	case res := <-result:
		if res.Err != nil {
			return "", res.Err
		}

		token, _ := res.Val.(string)

		return token, nil
	}
}

func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.tokenMu.Lock()

	current := s.store.Get()
	if current != stale {
		s.tokenMu.Unlock()

		if current == "" {
			return "", shop.NewError(shop.KindSessionExpired, nil)
		}

		return current, nil
	}

	s.setState(shop.StateRefreshing, nil)
	s.tokenMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.RefreshTimeout)
	defer cancel()

	s.logger.Debug("Refreshing session token", nil)

	resp, err := s.transport.Do(ctx, &shophttp.Request{
		Method:  http.MethodPost,
		Path:    constants.APIPathRefresh,
		Headers: bearer(stale),
	})
	if err != nil {
		return "", s.expire(stale, err)
	}

	var body tokenResponse

	err = json.Unmarshal(shop.NormalizeEnvelope(resp.Body), &body)
	if err != nil {
		return "", s.expire(stale, err)
	}

	if body.Token == "" {
		return "", s.expire(stale, shop.ErrMissingToken)
	}

	return s.commitRefresh(stale, body)
}

// commitRefresh stores the refreshed token only if the store still holds
// stale. A logout or login that completed during the call wins.
func (s *Session) commitRefresh(stale string, body tokenResponse) (string, error) {
	s.tokenMu.Lock()

	current := s.store.Get()
	if current != stale {
		s.tokenMu.Unlock()
		s.logger.Debug("Session changed during refresh, dropping refreshed token", nil)

		if current == "" {
			return "", shop.NewError(shop.KindSessionExpired, nil)
		}

		return current, nil
	}

	err := s.store.Set(body.Token)
	if err != nil {
		s.tokenMu.Unlock()

		return "", s.expire(stale, err)
	}

	s.setState(shop.StateAuthenticated, body.User)
	s.tokenMu.Unlock()

	s.logger.Info("Session token refreshed", nil)

	return body.Token, nil
}

// Invalidate clears the session if token is still the current one. It is
// used when the server rejects a freshly refreshed token.
func (s *Session) Invalidate(token string) error {
	if token == "" {
		return nil
	}

	return s.clearIfCurrent(token, "token rejected")
}

// expire clears the session after a failed refresh of stale. A session
// replaced in the meantime is left alone.
func (s *Session) expire(stale string, cause error) error {
	s.logger.Warn("Session refresh failed, clearing session", map[string]interface{}{
		"error": cause.Error(),
	})

	err := s.clearIfCurrent(stale, "refresh failed")
	if err != nil {
		cause = errors.Join(cause, err)
	}

	return shop.NewError(shop.KindSessionExpired, cause)
}

func (s *Session) clear(reason string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	return s.clearLocked(reason)
}

func (s *Session) clearIfCurrent(token, reason string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if s.store.Get() != token {
		return nil
	}

	return s.clearLocked(reason)
}

func (s *Session) clearLocked(reason string) error {
	err := s.store.Clear()

	s.mu.Lock()
	s.state = shop.StateUnauthenticated
	s.user = nil
	s.mu.Unlock()

	s.logger.Info("Session cleared", map[string]interface{}{"reason": reason})

	if err != nil {
		return fmt.Errorf("clearing session token: %w", err)
	}

	return nil
}

func bearer(token string) http.Header {
	return http.Header{constants.HeaderAuthorization: []string{constants.BearerPrefix + token}}
}
