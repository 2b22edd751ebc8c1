package client

import (
	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// CategoriesClient implements shop.CategoriesClient.
type CategoriesClient struct {
	*ResourceClient[shop.Category, *shop.CategoryInput]
}

var _ shop.CategoriesClient = (*CategoriesClient)(nil)

// NewCategoriesClient creates a new categories client.
func NewCategoriesClient(executor Executor) *CategoriesClient {
	return &CategoriesClient{
		ResourceClient: NewResourceClient[shop.Category, *shop.CategoryInput](executor, constants.APIPathCategories, "category"),
	}
}
