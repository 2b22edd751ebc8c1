package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go"
)

// KeyValue is the subset of a JetStream key-value bucket used for tokens.
type KeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
}

// NATSConfig configures a NATS-backed token store.
type NATSConfig struct {
	URL     string
	Bucket  string
	Key     string
	Timeout time.Duration
}

// NATSBackend keeps the token in a JetStream key-value bucket, so several
// processes can share one session.
type NATSBackend struct {
	kv  KeyValue
	key string
	nc  *nats.Conn
}

var invalidKeyChars = regexp.MustCompile(`[^-/_=.a-zA-Z0-9]`)

// SanitizeKey maps s onto the characters allowed in a bucket key.
func SanitizeKey(s string) string {
	if s == "" {
		return "token"
	}

	return invalidKeyChars.ReplaceAllString(s, "_")
}

// NewNATSBackend wraps an existing bucket.
func NewNATSBackend(kv KeyValue, key string) *NATSBackend {
	return &NATSBackend{kv: kv, key: SanitizeKey(key)}
}

// ConnectNATSBackend dials the server and opens the bucket, creating it if it
// does not exist yet.
func ConnectNATSBackend(config *NATSConfig) (*NATSBackend, error) {
	opts := []nats.Option{nats.Name("shopadmin")}
	if config.Timeout > 0 {
		opts = append(opts, nats.Timeout(config.Timeout))
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.KeyValue(config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      config.Bucket,
			Description: "shopadmin session tokens",
			History:     1,
		})
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("opening key-value bucket %s: %w", config.Bucket, err)
	}

	backend := NewNATSBackend(kv, config.Key)
	backend.nc = nc

	return backend, nil
}

// Load reads the token. A missing or deleted key means no token.
func (b *NATSBackend) Load() (string, error) {
	entry, err := b.kv.Get(b.key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return "", nil
		}

		return "", fmt.Errorf("reading key %s: %w", b.key, err)
	}

	return string(entry.Value()), nil
}

// Save writes the token.
func (b *NATSBackend) Save(token string) error {
	_, err := b.kv.Put(b.key, []byte(token))
	if err != nil {
		return fmt.Errorf("writing key %s: %w", b.key, err)
	}

	return nil
}

// Delete removes the token.
func (b *NATSBackend) Delete() error {
	err := b.kv.Delete(b.key)
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting key %s: %w", b.key, err)
	}

	return nil
}

// Close drains the connection opened by ConnectNATSBackend.
func (b *NATSBackend) Close() error {
	if b.nc == nil {
		return nil
	}

	err := b.nc.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}
