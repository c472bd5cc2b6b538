// Package fetch is the HTTP capability shared by all API-backed sources.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// UpstreamError reports a failed or non-2xx upstream call, keeping the URL
// for diagnostics.
type UpstreamError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream %s: status %d", e.URL, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

const defaultTimeout = 30 * time.Second

// Option configures a Client at construction time.
type Option func(*resty.Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithInsecureTLS skips certificate verification. Only for upstreams with
// a known-broken certificate chain.
func WithInsecureTLS() Option {
	return func(c *resty.Client) {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}
}

// Client wraps resty with the error contract the aggregators rely on:
// every failure surfaces as *UpstreamError annotated with the URL.
type Client struct {
	http *resty.Client
}

func New(opts ...Option) *Client {
	rc := resty.New().SetTimeout(defaultTimeout)
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// GetJSON fetches rawURL with the given query parameters and decodes the
// JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	resp, err := c.request(ctx, query).SetResult(out).Get(rawURL)
	return check(rawURL, resp, err)
}

// GetBytes fetches rawURL and returns the raw body, for adapters that walk
// dynamic JSON shapes instead of decoding into structs.
func (c *Client) GetBytes(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	resp, err := c.request(ctx, query).Get(rawURL)
	if err := check(rawURL, resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// PostJSON issues a POST with query parameters and decodes the JSON
// response into out. Used for job-submission endpoints.
func (c *Client) PostJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	resp, err := c.request(ctx, query).SetResult(out).Post(rawURL)
	return check(rawURL, resp, err)
}

func (c *Client) request(ctx context.Context, query url.Values) *resty.Request {
	req := c.http.R().SetContext(ctx).ForceContentType("application/json")
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	return req
}

func check(rawURL string, resp *resty.Response, err error) error {
	if err != nil {
		return &UpstreamError{URL: rawURL, Err: err}
	}
	if resp.IsError() {
		return &UpstreamError{URL: rawURL, StatusCode: resp.StatusCode()}
	}
	return nil
}
