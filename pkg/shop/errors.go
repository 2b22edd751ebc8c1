package shop

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies a failure surfaced by the client.
type ErrorKind string

// Error kinds.
const (
	KindNetwork            ErrorKind = "network"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindCaptchaMismatch    ErrorKind = "captcha_mismatch"
	KindCaptchaUnavailable ErrorKind = "captcha_unavailable"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindSessionExpired     ErrorKind = "session_expired"
	KindNotFound           ErrorKind = "not_found"
	KindValidation         ErrorKind = "validation"
	KindServer             ErrorKind = "server"
)

// Error is the classified error returned by every client operation.
type Error struct {
	Kind       ErrorKind         `json:"kind"                  yaml:"kind"`
	Message    string            `json:"message"               yaml:"message"`
	StatusCode int               `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"      yaml:"fields,omitempty"`
	Err        error             `json:"-"                     yaml:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}

	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status: %d)", msg, e.StatusCode)
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

var defaultMessages = map[ErrorKind]string{
	KindNetwork:            "cannot reach server",
	KindInvalidCredentials: "invalid email or password",
	KindCaptchaMismatch:    "captcha does not match, fetch a new challenge",
	KindCaptchaUnavailable: "captcha unavailable",
	KindUnauthorized:       "unauthorized, please log in again",
	KindSessionExpired:     "session expired",
	KindNotFound:           "resource not found",
	KindValidation:         "validation failed",
	KindServer:             "server error",
}

// Sentinels for use with errors.Is. Only Kind is compared.
var (
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrCaptchaMismatch    = &Error{Kind: KindCaptchaMismatch}
	ErrCaptchaUnavailable = &Error{Kind: KindCaptchaUnavailable}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrSessionExpired     = &Error{Kind: KindSessionExpired}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrServer             = &Error{Kind: KindServer}
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrBaseURLRequired       = errors.New("base URL is required")
	ErrNoHostInURL           = errors.New("no host specified in URL")
	ErrUnsupportedTokenStore = errors.New("unsupported token store")
	ErrNATSURLRequired       = errors.New("NATS URL is required for the nats token store")
	ErrTokenFileRequired     = errors.New("token file path is required for the file token store")
	ErrMissingToken          = errors.New("response is missing the token")
	ErrInvalidDataURI        = errors.New("invalid data URI")
	ErrEmptyPayload          = errors.New("empty payload")
)

// NewError builds a classified error with the default message for its kind.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: defaultMessages[kind], Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if the error means the caller must log in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSessionExpired)
}

// IsValidation checks if the error carries field errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNetwork checks if the server could not be reached.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// ErrorBody is the error envelope sent by the server.
type ErrorBody struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// ParseErrorBody extracts the message and a field to message map from an
// error response. Field values may be a string or a list of strings; lists
// are joined with "; ". Unparseable bodies yield empty results.
func ParseErrorBody(data []byte) (string, map[string]string) {
	var body ErrorBody

	err := json.Unmarshal(data, &body)
	if err != nil {
		return "", nil
	}

	if len(body.Errors) == 0 {
		return body.Message, nil
	}

	fields := make(map[string]string, len(body.Errors))

	for field, raw := range body.Errors {
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			fields[field] = strings.Join(list, "; ")

			continue
		}

		var single string
		if json.Unmarshal(raw, &single) == nil {
			fields[field] = single
		}
	}

	return body.Message, fields
}

// ClassifyStatus maps a non-2xx response onto the error taxonomy.
func ClassifyStatus(status int, body []byte) *Error {
	message, fields := ParseErrorBody(body)

	var kind ErrorKind

	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusUnprocessableEntity,
		status >= 400 && status < 500 && len(fields) > 0:
		kind = KindValidation
	default:
		kind = KindServer
	}

	if message == "" {
		message = defaultMessages[kind]
	}

	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: status,
		Fields:     fields,
	}
}

// FieldNames returns the field names carrying errors, sorted.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
