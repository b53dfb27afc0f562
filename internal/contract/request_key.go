package contract

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestKey identifies a cache entry. Two requests with the same method and
// fragment-less URL share an entry. Header is not part of the identity; it is
// compared against the stored entry's Vary header on match.
type RequestKey struct {
	Method string
	URL    string
	Header http.Header
}

// NewRequestKey builds the cache key for req.
func NewRequestKey(req *http.Request) RequestKey {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return RequestKey{Method: strings.ToUpper(method), URL: stripFragment(req.URL), Header: req.Header.Clone()}
}

// NewGetKey builds the key a GET request for rawURL would have.
func NewGetKey(rawURL string) (RequestKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RequestKey{}, fmt.Errorf("invalid request url %q: %w", rawURL, err)
	}
	return RequestKey{Method: http.MethodGet, URL: stripFragment(u)}, nil
}

// Cacheable reports whether entries can be stored or matched under this key.
// Only GET requests are cacheable.
func (k RequestKey) Cacheable() bool {
	return k.Method == http.MethodGet
}

// String returns the identity used for hashing and logging.
func (k RequestKey) String() string {
	return k.Method + " " + k.URL
}

func stripFragment(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	clone.Fragment = ""
	clone.RawFragment = ""
	return clone.String()
}
