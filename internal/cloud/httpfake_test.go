package cloud

import (
	"context"
	"strings"
	"sync"

	"github.com/harshpatel5940/reelmark/internal/httpclient"
)

type recordedRequest struct {
	Method string
	URL    string
	Opts   httpclient.Options
}

// fakeHTTP answers requests with the first route whose method matches and
// whose pattern is contained in the URL.
type fakeHTTP struct {
	mu       sync.Mutex
	routes   []fakeRoute
	requests []recordedRequest
}

type fakeRoute struct {
	method  string
	pattern string
	match   func(httpclient.Options) bool
	resp    httpclient.Response
}

func (f *fakeHTTP) on(method, pattern string, status int, text string) *fakeHTTP {
	return f.onMatch(method, pattern, nil, status, text)
}

func (f *fakeHTTP) onMatch(method, pattern string, match func(httpclient.Options) bool, status int, text string) *fakeHTTP {
	f.routes = append(f.routes, fakeRoute{method: method, pattern: pattern, match: match,
		resp: httpclient.Response{StatusCode: status, Text: text}})
	return f
}

func (f *fakeHTTP) do(method, rawURL string, opts httpclient.Options) (*httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{Method: method, URL: rawURL, Opts: opts})
	for _, r := range f.routes {
		if r.method == method && strings.Contains(rawURL, r.pattern) && (r.match == nil || r.match(opts)) {
			resp := r.resp
			return &resp, nil
		}
	}
	return &httpclient.Response{StatusCode: 404, Text: "no route"}, nil
}

func (f *fakeHTTP) Get(_ context.Context, u string, o httpclient.Options) (*httpclient.Response, error) {
	return f.do("GET", u, o)
}

func (f *fakeHTTP) Post(_ context.Context, u string, o httpclient.Options) (*httpclient.Response, error) {
	return f.do("POST", u, o)
}

func (f *fakeHTTP) Put(_ context.Context, u string, o httpclient.Options) (*httpclient.Response, error) {
	return f.do("PUT", u, o)
}

func (f *fakeHTTP) Patch(_ context.Context, u string, o httpclient.Options) (*httpclient.Response, error) {
	return f.do("PATCH", u, o)
}

func (f *fakeHTTP) Delete(_ context.Context, u string, o httpclient.Options) (*httpclient.Response, error) {
	return f.do("DELETE", u, o)
}

func (f *fakeHTTP) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func queryContains(substr string) func(httpclient.Options) bool {
	return func(o httpclient.Options) bool {
		return strings.Contains(o.Query["q"], substr)
	}
}
