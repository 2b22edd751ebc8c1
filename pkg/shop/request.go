package shop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// Request describes one API call. It is treated as immutable once handed to
// the pipeline so it can be replayed after a token refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is encoded as the request body when set.
	JSON interface{}
	// Form is encoded as multipart/form-data when set. Takes precedence over JSON.
	Form *Form
	// ExpectsAuth attaches the session token and enables refresh-and-retry on 401.
	ExpectsAuth bool
}

// Payload is a successful response after envelope normalization.
type Payload struct {
	StatusCode int
	// Data is the unwrapped value: the "data" member of the body when present,
	// otherwise the raw body. Nil for an empty body.
	Data json.RawMessage
}

// NewPayload normalizes a response body into a Payload.
func NewPayload(status int, body []byte) *Payload {
	return &Payload{StatusCode: status, Data: NormalizeEnvelope(body)}
}

// NormalizeEnvelope returns the "data" member of a {"data": ...} object, or
// the body itself when no such member exists. A "data": null member counts as
// absent.
func NormalizeEnvelope(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] != '{' {
		return json.RawMessage(trimmed)
	}

	var envelope map[string]json.RawMessage

	err := json.Unmarshal(trimmed, &envelope)
	if err != nil {
		return json.RawMessage(trimmed)
	}

	data, ok := envelope["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return json.RawMessage(trimmed)
	}

	return data
}

// Empty reports whether the payload carries no data.
func (p *Payload) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// Decode unmarshals the unwrapped data into v.
func (p *Payload) Decode(v interface{}) error {
	if p.Empty() {
		return ErrEmptyPayload
	}

	err := json.Unmarshal(p.Data, v)
	if err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	return nil
}
