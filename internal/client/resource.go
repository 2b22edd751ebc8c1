package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// ResourceClient implements CRUD on one collection. T is the record type and
// I the write payload. It carries no auth logic: every call goes through the
// executor.
type ResourceClient[T any, I shop.FormEncoder] struct {
	executor Executor
	path     string
	name     string
}

// NewResourceClient creates a client for the collection at path. name is the
// singular noun used in error messages.
func NewResourceClient[T any, I shop.FormEncoder](executor Executor, path, name string) *ResourceClient[T, I] {
	return &ResourceClient[T, I]{
		executor: executor,
		path:     path,
		name:     name,
	}
}

// List returns every record of the collection.
func (c *ResourceClient[T, I]) List(ctx context.Context) ([]T, error) {
	payload, err := c.executor.Execute(ctx, &shop.Request{
		Method:      http.MethodGet,
		Path:        c.path,
		ExpectsAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", c.name, err)
	}

	items := []T{}
	if payload.Empty() {
		return items, nil
	}

	err = payload.Decode(&items)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", c.name, shop.NewError(shop.KindServer, err))
	}

	return items, nil
}

// Get returns one record.
func (c *ResourceClient[T, I]) Get(ctx context.Context, id int) (*T, error) {
	payload, err := c.executor.Execute(ctx, &shop.Request{
		Method:      http.MethodGet,
		Path:        c.itemPath(id),
		ExpectsAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s %d: %w", c.name, id, err)
	}

	return c.decode(payload, "getting", id)
}

// Create adds a record.
func (c *ResourceClient[T, I]) Create(ctx context.Context, input I) (*T, error) {
	payload, err := c.executor.Execute(ctx, &shop.Request{
		Method:      http.MethodPost,
		Path:        c.path,
		Form:        input.Form(),
		ExpectsAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.name, err)
	}

	return c.decode(payload, "creating", 0)
}

// Update replaces the record's fields.
func (c *ResourceClient[T, I]) Update(ctx context.Context, id int, input I) (*T, error) {
	payload, err := c.executor.Execute(ctx, &shop.Request{
		Method:      http.MethodPost,
		Path:        c.itemPath(id),
		Form:        input.Form(),
		ExpectsAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("updating %s %d: %w", c.name, id, err)
	}

	return c.decode(payload, "updating", id)
}

// Remove deletes a record with POST /<collection>/:id/delete. It is a
// state-changing call and is never retried by the transport.
func (c *ResourceClient[T, I]) Remove(ctx context.Context, id int) error {
	_, err := c.executor.Execute(ctx, &shop.Request{
		Method:      http.MethodPost,
		Path:        c.itemPath(id) + "/delete",
		ExpectsAuth: true,
	})
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", c.name, id, err)
	}

	return nil
}

func (c *ResourceClient[T, I]) itemPath(id int) string {
	return c.path + "/" + strconv.Itoa(id)
}

func (c *ResourceClient[T, I]) decode(payload *shop.Payload, verb string, id int) (*T, error) {
	var item T

	err := payload.Decode(&item)
	if err != nil {
		if id != 0 {
			return nil, fmt.Errorf("%s %s %d: %w", verb, c.name, id, shop.NewError(shop.KindServer, err))
		}

		return nil, fmt.Errorf("%s %s: %w", verb, c.name, shop.NewError(shop.KindServer, err))
	}

	return &item, nil
}
