package shopclient_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/fivetwenty-io/shopadmin/internal/testserver"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
	"github.com/fivetwenty-io/shopadmin/pkg/shopclient"
)

func TestNewTokenStore_Memory(t *testing.T) {
	t.Parallel()

	for _, config := range []*shopclient.StoreConfig{nil, {}, {Type: shopclient.StoreTypeMemory}} {
		store, err := shopclient.NewTokenStore(config)
		require.NoError(t, err)
		assert.Empty(t, store.Get())

		require.NoError(t, store.Set("abc"))
		assert.Equal(t, "abc", store.Get())

		_, closable := store.(io.Closer)
		assert.False(t, closable)
	}
}

func TestNewTokenStore_Errors(t *testing.T) {
	t.Parallel()

	_, err := shopclient.NewTokenStore(&shopclient.StoreConfig{Type: "redis"})
	require.ErrorIs(t, err, shop.ErrUnsupportedTokenStore)

	_, err = shopclient.NewTokenStore(&shopclient.StoreConfig{Type: shopclient.StoreTypeFile})
	require.ErrorIs(t, err, shop.ErrTokenFileRequired)

	_, err = shopclient.NewTokenStore(&shopclient.StoreConfig{Type: shopclient.StoreTypeNATS})
	require.ErrorIs(t, err, shop.ErrNATSURLRequired)
}

// A file-backed session survives a restart of the client.
func TestFileTokenStore_Restart(t *testing.T) {
	t.Parallel()

	server := testserver.New()
	defer server.Close()

	ctx := context.Background()
	config := &shopclient.StoreConfig{
		Type: shopclient.StoreTypeFile,
		File: filepath.Join(t.TempDir(), "token.yml"),
	}

	store, err := shopclient.NewTokenStore(config)
	require.NoError(t, err)

	first, err := shopclient.NewWithTokenStore(ctx, server.URL, store)
	require.NoError(t, err)

	session, err := first.Login(ctx, shop.Credentials{
		Email:       testserver.Email,
		Password:    testserver.Password,
		CaptchaCode: testserver.CaptchaCode,
	})
	require.NoError(t, err)

	reopened, err := shopclient.NewTokenStore(config)
	require.NoError(t, err)
	assert.Equal(t, session.Token, reopened.Get())

	second, err := shopclient.NewWithTokenStore(ctx, server.URL, reopened)
	require.NoError(t, err)
	assert.Equal(t, shop.StateAuthenticated, second.State())
	assert.True(t, second.IsAuthenticated(ctx))

	require.NoError(t, second.Logout(ctx))

	again, err := shopclient.NewTokenStore(config)
	require.NoError(t, err)
	assert.Empty(t, again.Get())
}

//nolint:paralleltest // keyring.MockInit replaces a package-level provider
func TestKeyringTokenStore(t *testing.T) {
	keyring.MockInit()

	store, err := shopclient.NewTokenStore(&shopclient.StoreConfig{
		Type: shopclient.StoreTypeKeyring,
		Key:  "http://127.0.0.1:8000/api",
	})
	require.NoError(t, err)
	assert.Empty(t, store.Get())

	require.NoError(t, store.Set("k-token"))

	reopened, err := shopclient.NewKeyringTokenStore("http://127.0.0.1:8000/api")
	require.NoError(t, err)
	assert.Equal(t, "k-token", reopened.Get())

	require.NoError(t, reopened.Clear())

	other, err := shopclient.NewKeyringTokenStore("")
	require.NoError(t, err)
	assert.Empty(t, other.Get())
}
