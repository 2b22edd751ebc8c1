package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// ProductsClient implements shop.ProductsClient.
type ProductsClient struct {
	*ResourceClient[shop.Product, *shop.ProductInput]
}

var _ shop.ProductsClient = (*ProductsClient)(nil)

// NewProductsClient creates a new products client.
func NewProductsClient(executor Executor) *ProductsClient {
	return &ProductsClient{
		ResourceClient: NewResourceClient[shop.Product, *shop.ProductInput](executor, constants.APIPathProducts, "product"),
	}
}

// SetAvailability loads the product and writes it back with the given
// availability. The server only accepts full updates.
func (c *ProductsClient) SetAvailability(ctx context.Context, id int, available bool) (*shop.Product, error) {
	product, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	input := product.Input()
	input.IsAvailable = available

	updated, err := c.Update(ctx, id, input)
	if err != nil {
		return nil, fmt.Errorf("setting availability: %w", err)
	}

	return updated, nil
}
