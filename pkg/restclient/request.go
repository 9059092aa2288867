package restclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Request builds a request for method and path and executes it through the
// pipeline. path may be absolute; otherwise it is resolved against the
// client's base URL. opts may be nil.
func (c *Client) Request(ctx context.Context, method, path string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	target, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	if len(opts.Query) > 0 {
		query := target.Query()
		for key, values := range opts.Query {
			query[key] = values
		}
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), opts.Body)
	if err != nil {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "building request failed",
			Method:  method,
			URL:     target.String(),
			Cause:   err,
		}
	}

	for name, values := range c.headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	for name, values := range opts.Headers {
		req.Header.Del(name)
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}

	return c.Do(req)
}

// resolveURL resolves path against the base URL. Absolute paths bypass the
// base URL entirely.
func (c *Client) resolveURL(path string) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "invalid request path",
			URL:     path,
			Cause:   err,
		}
	}
	if u.IsAbs() {
		return u, nil
	}
	if c.baseURL == nil {
		return nil, &Error{
			Kind:    KindConfiguration,
			Message: "relative path requires a base URL",
			URL:     path,
		}
	}

	resolved := *c.baseURL
	resolved.Path = strings.TrimSuffix(resolved.Path, "/") + "/" + strings.TrimPrefix(u.Path, "/")
	resolved.RawQuery = u.RawQuery
	return &resolved, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, path, opts)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodPost, path, opts)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodPut, path, opts)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodPatch, path, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodDelete, path, opts)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodHead, path, opts)
}

// Options issues an OPTIONS request.
func (c *Client) Options(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return c.Request(ctx, http.MethodOptions, path, opts)
}
