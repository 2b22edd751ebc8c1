package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/internal/testserver"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// setupCLI points viper at a config file in a temp dir and, when server is
// non-nil, at the fake API. Tests using it share viper's global state and
// must not run in parallel.
func setupCLI(t *testing.T, server *testserver.Server) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.SetConfigFile(filepath.Join(dir, constants.ConfigFileName))
	viper.Set("output", constants.FormatJSON)

	if server != nil {
		viper.Set("api", server.URL)
	}

	return dir
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func loginCLI(t *testing.T) {
	t.Helper()

	_, err := execute(t, NewLoginCommand(), "",
		"--email", testserver.Email, "--password", testserver.Password, "--captcha", testserver.CaptchaCode)
	require.NoError(t, err)
}

//nolint:paralleltest // viper global state
func TestConfigCommand(t *testing.T) {
	dir := setupCLI(t, nil)

	_, err := execute(t, NewConfigCommand(), "", "set", "api", "http://127.0.0.1:8000/api")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, constants.ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "api: http://127.0.0.1:8000/api")
	assert.Equal(t, "http://127.0.0.1:8000/api", loadConfig().API)

	_, err = execute(t, NewConfigCommand(), "", "set", "token_store", "redis")
	require.ErrorIs(t, err, constants.ErrInvalidTokenStore)

	_, err = execute(t, NewConfigCommand(), "", "set", "retry_max", "-1")
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = execute(t, NewConfigCommand(), "", "set", "colour", "blue")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	_, err = execute(t, NewConfigCommand(), "", "set", "rate_limit", "2.5")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, loadConfig().RateLimit, 0.0001)

	_, err = execute(t, NewConfigCommand(), "", "unset", "api")
	require.NoError(t, err)
	assert.Empty(t, loadConfig().API)

	out, err := execute(t, NewConfigCommand(), "", "show")
	require.NoError(t, err)

	var shown Config

	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, constants.TokenStoreFile, shown.TokenStore)
	assert.InDelta(t, 2.5, shown.RateLimit, 0.0001)
}

//nolint:paralleltest // viper global state
func TestNoAPIConfigured(t *testing.T) {
	setupCLI(t, nil)

	_, err := execute(t, NewProductsCommand(), "", "list")
	require.ErrorIs(t, err, constants.ErrNoAPIConfigured)
}

//nolint:paralleltest,funlen // viper global state
func TestLoginCommand(t *testing.T) {
	t.Run("prompts for the captcha code", func(t *testing.T) {
		server := testserver.New()
		defer server.Close()

		dir := setupCLI(t, server)

		out, err := execute(t, NewLoginCommand(), testserver.CaptchaCode+"\n",
			"--email", testserver.Email, "--password", testserver.Password)
		require.NoError(t, err)
		assert.Contains(t, out, "Captcha image written to "+filepath.Join(dir, constants.CaptchaFileName))
		assert.Contains(t, out, `"email": "a@b.com"`)

		image, err := os.ReadFile(filepath.Join(dir, constants.CaptchaFileName))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(image, []byte("\x89PNG")))

		token, err := os.ReadFile(filepath.Join(dir, constants.TokenFileName))
		require.NoError(t, err)
		assert.Contains(t, string(token), "token:")
	})

	t.Run("fetches a new captcha after a mismatch", func(t *testing.T) {
		server := testserver.New()
		defer server.Close()

		setupCLI(t, server)

		_, err := execute(t, NewLoginCommand(), "WRONG\n"+testserver.CaptchaCode+"\n",
			"--email", testserver.Email, "--password", testserver.Password)
		require.NoError(t, err)
		assert.Equal(t, 2, server.Count("GET /captcha"))
		assert.Equal(t, 2, server.Count("POST /login"))
	})

	t.Run("gives up after three mismatches", func(t *testing.T) {
		server := testserver.New()
		defer server.Close()

		setupCLI(t, server)

		_, err := execute(t, NewLoginCommand(), "A\nB\nC\n",
			"--email", testserver.Email, "--password", testserver.Password)
		require.ErrorIs(t, err, constants.ErrTooManyAttempts)
		assert.Equal(t, 3, server.Count("POST /login"))
	})

	t.Run("wrong password", func(t *testing.T) {
		server := testserver.New()
		defer server.Close()

		setupCLI(t, server)

		_, err := execute(t, NewLoginCommand(), "wrong\n",
			"--email", testserver.Email, "--captcha", testserver.CaptchaCode)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid credentials.")
		assert.Contains(t, err.Error(), "email: These credentials do not match our records.")
	})

	t.Run("email is required", func(t *testing.T) {
		server := testserver.New()
		defer server.Close()

		setupCLI(t, server)

		_, err := execute(t, NewLoginCommand(), "\n")
		require.ErrorIs(t, err, constants.ErrEmailRequired)
		assert.Equal(t, 0, server.Total())
	})
}

//nolint:paralleltest // viper global state
func TestSessionCommands(t *testing.T) {
	server := testserver.New()
	defer server.Close()

	dir := setupCLI(t, server)

	_, err := execute(t, NewWhoamiCommand(), "")
	require.ErrorIs(t, err, constants.ErrNotAuthenticated)

	loginCLI(t)

	out, err := execute(t, NewWhoamiCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "a@b.com"`)

	out, err = execute(t, NewTokenCommand(), "", "status")
	require.NoError(t, err)

	var status tokenStatus

	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Authenticated)
	assert.Equal(t, server.URL, status.API)
	assert.Equal(t, "Unknown expiration", status.ExpiryStatus)

	_, err = execute(t, NewTokenCommand(), "", "refresh")
	require.NoError(t, err)
	assert.Equal(t, 1, server.Count("POST /refresh"))

	out, err = execute(t, NewLogoutCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully logged out")
	assert.Equal(t, 1, server.Count("POST /logout"))

	assert.NoFileExists(t, filepath.Join(dir, constants.TokenFileName))

	_, err = execute(t, NewTokenCommand(), "", "refresh")
	require.ErrorIs(t, err, constants.ErrNotAuthenticated)
}

//nolint:paralleltest,funlen // viper global state
func TestProductsCommand(t *testing.T) {
	server := testserver.New()
	defer server.Close()

	dir := setupCLI(t, server)
	loginCLI(t)

	out, err := execute(t, NewProductsCommand(), "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Chair"`)

	imagePath := filepath.Join(dir, "lamp.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("png"), constants.ConfigFilePerm))

	out, err = execute(t, NewProductsCommand(), "",
		"create", "--name", "Lamp", "--price", "19.5", "--stock", "4", "--category", "1", "--image", imagePath)
	require.NoError(t, err)

	var created struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		ImageURL string `json:"image_url"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Lamp", created.Name)
	assert.Equal(t, "/storage/products/lamp.png", created.ImageURL)

	id := strconv.Itoa(created.ID)

	out, err = execute(t, NewProductsCommand(), "", "update", id, "--stock", "7", "--remove-image")
	require.NoError(t, err)
	assert.Contains(t, out, `"stock": 7`)
	assert.Contains(t, out, `"name": "Lamp"`)
	assert.NotContains(t, out, "image_url")

	_, err = execute(t, NewProductsCommand(), "", "update", id, "--image", imagePath, "--remove-image")
	require.ErrorIs(t, err, constants.ErrImageConflict)

	out, err = execute(t, NewProductsCommand(), "", "disable", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"is_available": false`)

	_, err = execute(t, NewProductsCommand(), "", "create", "--name", " ")
	require.ErrorIs(t, err, shop.ErrValidation)
	assert.Contains(t, err.Error(), "name: The name field is required.")

	_, err = execute(t, NewProductsCommand(), "", "delete", id)
	require.ErrorIs(t, err, constants.ErrDeleteNotConfirm)

	out, err = execute(t, NewProductsCommand(), "", "delete", id, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully deleted product "+id)

	_, err = execute(t, NewProductsCommand(), "", "get", id)
	require.True(t, shop.IsNotFound(err))

	_, err = execute(t, NewProductsCommand(), "", "get", "abc")
	require.ErrorIs(t, err, constants.ErrInvalidID)

	_, err = execute(t, NewProductsCommand(), "", "create")
	require.ErrorIs(t, err, constants.ErrNameRequired)
}

//nolint:paralleltest // viper global state
func TestCategoriesCommand(t *testing.T) {
	server := testserver.New()
	defer server.Close()

	setupCLI(t, server)
	loginCLI(t)

	out, err := execute(t, NewCategoriesCommand(), "", "create", "--name", "Lighting")
	require.NoError(t, err)

	var created []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created, 1)

	id := strconv.Itoa(created[0].ID)

	out, err = execute(t, NewCategoriesCommand(), "", "update", id, "--name", "Lamps")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Lamps"`)

	out, err = execute(t, NewCategoriesCommand(), "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Furniture")
	assert.Contains(t, out, "Lamps")

	_, err = execute(t, NewCategoriesCommand(), "", "delete", id, "--force")
	require.NoError(t, err)
	assert.Equal(t, 1, server.Count("POST /categories/"+id+"/delete"))
}

//nolint:paralleltest // viper global state
func TestVersionCommand(t *testing.T) {
	setupCLI(t, nil)

	out, err := execute(t, NewVersionCommand("1.2.3", "abc", "today"), "")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "1.2.3"`)

	viper.Set("output", constants.FormatTable)

	out, err = execute(t, NewVersionCommand("1.2.3", "abc", "today"), "")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, strings.ToUpper(out), "PROPERTY")
}
