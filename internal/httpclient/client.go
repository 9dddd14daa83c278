// Package httpclient is the small HTTP abstraction REST-based cloud providers
// are written against. Every verb takes headers, query parameters and a body
// and returns the status code with the response text, so providers never
// touch net/http directly and can be tested with a fake Client.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 32 << 20

// Options carries the optional parts of a request.
type Options struct {
	Headers map[string]string
	Query   map[string]string
	Body    []byte
}

// Response is the status code and body text of a completed request.
type Response struct {
	StatusCode int
	Text       string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs HTTP requests. Errors are transport failures only; non-2xx
// statuses come back as a Response.
type Client interface {
	Get(ctx context.Context, rawURL string, opts Options) (*Response, error)
	Post(ctx context.Context, rawURL string, opts Options) (*Response, error)
	Put(ctx context.Context, rawURL string, opts Options) (*Response, error)
	Patch(ctx context.Context, rawURL string, opts Options) (*Response, error)
	Delete(ctx context.Context, rawURL string, opts Options) (*Response, error)
}

// StdClient implements Client on top of an *http.Client.
type StdClient struct {
	http      *http.Client
	userAgent string
}

// New returns a client whose transport is instrumented with otelhttp, so
// provider calls show up as spans when the host installs a tracer provider.
func New(timeout time.Duration, userAgent string) *StdClient {
	return &StdClient{
		http: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "provider " + r.Method + " " + r.URL.Host
				}),
			),
		},
		userAgent: userAgent,
	}
}

// NewWithHTTPClient wraps an existing client (tests pass httptest clients).
func NewWithHTTPClient(c *http.Client, userAgent string) *StdClient {
	return &StdClient{http: c, userAgent: userAgent}
}

func (c *StdClient) Get(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, opts)
}

func (c *StdClient) Post(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, opts)
}

func (c *StdClient) Put(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	return c.do(ctx, http.MethodPut, rawURL, opts)
}

func (c *StdClient) Patch(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	return c.do(ctx, http.MethodPatch, rawURL, opts)
}

func (c *StdClient) Delete(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	return c.do(ctx, http.MethodDelete, rawURL, opts)
}

func (c *StdClient) do(ctx context.Context, method, rawURL string, opts Options) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if len(opts.Query) > 0 {
		q := u.Query()
		for k, v := range opts.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u.Host, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", u.Host, err)
	}

	return &Response{StatusCode: resp.StatusCode, Text: string(data)}, nil
}
