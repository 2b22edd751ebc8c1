package shopclient

import (
	"fmt"

	"github.com/fivetwenty-io/shopadmin/internal/auth"
	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// StoreType represents the type of token store backend.
type StoreType string

const (
	// StoreTypeMemory keeps the token for the lifetime of the process.
	StoreTypeMemory StoreType = constants.TokenStoreMemory

	// StoreTypeFile keeps the token in a YAML file.
	StoreTypeFile StoreType = constants.TokenStoreFile

	// StoreTypeKeyring keeps the token in the operating system keychain.
	StoreTypeKeyring StoreType = constants.TokenStoreKeyring

	// StoreTypeNATS keeps the token in a NATS JetStream key-value bucket.
	StoreTypeNATS StoreType = constants.TokenStoreNATS
)

// StoreConfig configures a token store backend.
type StoreConfig struct {
	// Type is the store backend type. Empty means memory.
	Type StoreType

	// Key identifies the session, usually the API base URL. Used as the
	// keyring account and the NATS key.
	Key string

	// File is the token file path for the file backend.
	File string

	// NATS configures the NATS backend.
	NATS *NATSConfig
}

const defaultKey = "default"

// NATSConfig configures the NATS token store.
type NATSConfig struct {
	URL    string
	Bucket string
}

// NATSTokenStore is a token store backed by a NATS bucket. Close releases
// the connection.
type NATSTokenStore struct {
	*auth.PersistentStore

	backend *auth.NATSBackend
}

// Close drains the NATS connection.
func (s *NATSTokenStore) Close() error {
	return s.backend.Close()
}

// NewTokenStore creates a token store from configuration. Stores that hold
// a connection implement io.Closer.
func NewTokenStore(config *StoreConfig) (shop.TokenStore, error) {
	if config == nil {
		return NewMemoryTokenStore(), nil
	}

	switch config.Type {
	case "", StoreTypeMemory:
		return NewMemoryTokenStore(), nil

	case StoreTypeFile:
		return NewFileTokenStore(config.File)

	case StoreTypeKeyring:
		return NewKeyringTokenStore(config.Key)

	case StoreTypeNATS:
		if config.NATS == nil || config.NATS.URL == "" {
			return nil, shop.ErrNATSURLRequired
		}

		return NewNATSTokenStore(config.NATS, config.Key)

	default:
		return nil, fmt.Errorf("%w: %s", shop.ErrUnsupportedTokenStore, config.Type)
	}
}

// NewMemoryTokenStore creates a process-local token store.
func NewMemoryTokenStore() shop.TokenStore {
	return auth.NewMemoryStore()
}

// NewFileTokenStore creates a token store persisted to path.
func NewFileTokenStore(path string) (shop.TokenStore, error) {
	if path == "" {
		return nil, shop.ErrTokenFileRequired
	}

	store, err := auth.NewPersistentStore(auth.NewFileBackend(path))
	if err != nil {
		return nil, err
	}

	return store, nil
}

// NewKeyringTokenStore creates a token store in the OS keychain, one entry
// per key.
func NewKeyringTokenStore(key string) (shop.TokenStore, error) {
	if key == "" {
		key = defaultKey
	}

	store, err := auth.NewPersistentStore(auth.NewKeyringBackend(constants.KeyringService, key))
	if err != nil {
		return nil, err
	}

	return store, nil
}

// NewNATSTokenStore connects to NATS and creates a token store in the
// configured bucket.
func NewNATSTokenStore(config *NATSConfig, key string) (*NATSTokenStore, error) {
	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	backend, err := auth.ConnectNATSBackend(&auth.NATSConfig{
		URL:     config.URL,
		Bucket:  bucket,
		Key:     key,
		Timeout: constants.ShortHTTPTimeout,
	})
	if err != nil {
		return nil, err
	}

	store, err := auth.NewPersistentStore(backend)
	if err != nil {
		_ = backend.Close()

		return nil, err
	}

	return &NATSTokenStore{PersistentStore: store, backend: backend}, nil
}
