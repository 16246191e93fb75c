package gateway

import (
	"context"
	"net/http"
)

// Request sends method to endpoint and decodes a 2xx response into T. A 204
// yields the zero value of T.
func Request[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...RequestOption) (T, error) {
	var out T
	if err := c.Do(ctx, method, endpoint, body, &out, opts...); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func Get[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodGet, endpoint, nil, opts...)
}

func Post[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodPost, endpoint, body, opts...)
}

func Put[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodPut, endpoint, body, opts...)
}

func Patch[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodPatch, endpoint, body, opts...)
}

func Delete[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodDelete, endpoint, nil, opts...)
}
