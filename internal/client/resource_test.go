package client_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/shopadmin/internal/client"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

func loggedIn(t *testing.T) (*client.Client, func(endpoint string) int) {
	t.Helper()

	c, server, _ := newClient(t, nil)

	_, err := c.Login(context.Background(), credentials())
	require.NoError(t, err)

	return c, server.Count
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestProductsClient(t *testing.T) {
	t.Parallel()
	t.Run("list", func(t *testing.T) {
		t.Parallel()

		c, _ := loggedIn(t)

		products, err := c.Products().List(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 1)

		product := products[0]
		assert.Equal(t, 9, product.ID)
		assert.InDelta(t, 49.90, float64(product.Price), 0.001)
		assert.True(t, bool(product.IsAvailable))
		require.NotNil(t, product.CategoryID)
		assert.Equal(t, 1, *product.CategoryID)
	})

	t.Run("create update remove", func(t *testing.T) {
		t.Parallel()

		c, count := loggedIn(t)
		ctx := context.Background()
		categoryID := 1

		created, err := c.Products().Create(ctx, &shop.ProductInput{
			Name:        "  Table ",
			Description: "Walnut",
			Price:       120.5,
			Stock:       3,
			CategoryID:  &categoryID,
			IsAvailable: true,
			Image:       &shop.FormFile{FileName: "table.png", Content: []byte{0x89, 0x50}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Table", created.Name)
		assert.Equal(t, "/storage/products/table.png", created.ImageURL)

		input := created.Input()
		input.Stock = 0
		input.ImageDeleted = true

		updated, err := c.Products().Update(ctx, created.ID, input)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Stock)
		assert.Empty(t, updated.ImageURL)
		assert.Equal(t, "Walnut", updated.Description)

		require.NoError(t, c.Products().Remove(ctx, created.ID))
		assert.Equal(t, 1, count("POST /products/"+strconv.Itoa(created.ID)+"/delete"))

		_, err = c.Products().Get(ctx, created.ID)
		require.True(t, shop.IsNotFound(err))
	})

	t.Run("set availability", func(t *testing.T) {
		t.Parallel()

		c, _ := loggedIn(t)

		updated, err := c.Products().SetAvailability(context.Background(), 9, false)
		require.NoError(t, err)
		assert.False(t, bool(updated.IsAvailable))
		assert.Equal(t, "Chair", updated.Name)
		assert.Equal(t, 12, updated.Stock)
	})

	t.Run("validation errors carry fields", func(t *testing.T) {
		t.Parallel()

		c, _ := loggedIn(t)

		_, err := c.Products().Create(context.Background(), &shop.ProductInput{Name: " "})
		require.True(t, shop.IsValidation(err))

		shopErr := &shop.Error{}
		require.True(t, errors.As(err, &shopErr))
		assert.Equal(t, []string{"name"}, shopErr.FieldNames())
		assert.Equal(t, "The name field is required.", shopErr.Fields["name"])
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		c, _ := loggedIn(t)

		err := c.Products().Remove(context.Background(), 12345)
		require.True(t, shop.IsNotFound(err))
		assert.Contains(t, err.Error(), "deleting product 12345")
	})
}

func TestResourceClient_RawBodies(t *testing.T) {
	t.Parallel()

	c, server, _ := newClient(t, nil)
	server.SetRaw(true)

	_, err := c.Login(context.Background(), credentials())
	require.NoError(t, err)

	categories, err := c.Categories().List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Furniture", categories[0].Name)

	product, err := c.Products().Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Chair", product.Name)
}

func TestCategoriesClient(t *testing.T) {
	t.Parallel()

	c, count := loggedIn(t)
	ctx := context.Background()

	created, err := c.Categories().Create(ctx, &shop.CategoryInput{Name: "Lighting"})
	require.NoError(t, err)
	assert.Equal(t, "Lighting", created.Name)

	updated, err := c.Categories().Update(ctx, created.ID, &shop.CategoryInput{Name: "Lamps"})
	require.NoError(t, err)
	assert.Equal(t, "Lamps", updated.Name)

	got, err := c.Categories().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamps", got.Name)

	require.NoError(t, c.Categories().Remove(ctx, created.ID))
	assert.Equal(t, 1, count("POST /categories/"+strconv.Itoa(created.ID)+"/delete"))

	_, err = c.Categories().Create(ctx, &shop.CategoryInput{})
	require.True(t, shop.IsValidation(err))
}

// Login, then GET /products/9 answers 401; the pipeline refreshes and the
// caller gets the data of the replayed response.
func TestLoginThenExpiredProductFetch(t *testing.T) {
	t.Parallel()

	c, server, store := newClient(t, nil)
	ctx := context.Background()

	session, err := c.Login(ctx, shop.Credentials{Email: "a@b.com", Password: "secret12", CaptchaCode: "Q7X2"})
	require.NoError(t, err)

	product, err := c.Products().Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, product.ID)

	first, ok := server.LastRequest("GET /products/9")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+session.Token, first.Authorization)

	server.Expire(session.Token)

	product, err = c.Products().Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Chair", product.Name)

	replay, ok := server.LastRequest("GET /products/9")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+store.Get(), replay.Authorization)
	assert.NotEqual(t, session.Token, store.Get())
	assert.Equal(t, 1, server.Count("POST /refresh"))
	assert.Equal(t, 3, server.Count("GET /products/9"))
}

func TestClient_Do(t *testing.T) {
	t.Parallel()

	c, _ := loggedIn(t)

	payload, err := c.Do(context.Background(), &shop.Request{Method: "GET", Path: "/me", ExpectsAuth: true})
	require.NoError(t, err)

	var body struct {
		User shop.User `json:"user"`
	}

	require.NoError(t, payload.Decode(&body))
	assert.Equal(t, "a@b.com", body.User["email"])

	assert.True(t, c.IsAuthenticated(context.Background()))
	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, c.Token())
	assert.False(t, c.IsAuthenticated(context.Background()))
}
