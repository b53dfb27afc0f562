package interceptor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/huangsam/assetcache/schema"
)

// Fetcher performs network requests on behalf of the interceptor.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*Response, error)
}

// hopHeaders are connection-scoped and never forwarded upstream.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// conditionalHeaders would let the origin answer 304 to a client that already
// holds the asset, which leaves nothing to store.
var conditionalHeaders = []string{
	"If-None-Match",
	"If-Modified-Since",
	"If-Match",
	"If-Unmodified-Since",
	"If-Range",
}

// HTTPFetcher fetches over HTTP and classifies responses against an origin.
type HTTPFetcher struct {
	client *http.Client
	origin *url.URL
}

var _ Fetcher = &HTTPFetcher{} // Compile-time check

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
// A zero timeout disables the limit.
func NewHTTPFetcher(origin *url.URL, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		origin: origin,
	}
}

// Fetch issues req and returns the response without reading its body.
// Conditional headers are dropped so the origin sends a full response.
// Non-2xx statuses are not errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	out, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", req.URL, err)
	}
	out.Header = req.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	for _, h := range conditionalHeaders {
		out.Header.Del(h)
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		out.Body = req.Body
		out.ContentLength = req.ContentLength
	}

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", req.URL, err)
	}

	finalURL := out.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	header := resp.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     header,
		Type:       f.classify(finalURL),
		URL:        finalURL.String(),
		Redirected: finalURL.String() != out.URL.String(),
		Body:       resp.Body,
	}, nil
}

// classify returns basic for responses served from the origin and opaque otherwise.
func (f *HTTPFetcher) classify(u *url.URL) schema.ResponseType {
	if f.origin != nil && u.Scheme == f.origin.Scheme && u.Host == f.origin.Host {
		return schema.BasicResponse
	}
	return schema.OpaqueResponse
}
