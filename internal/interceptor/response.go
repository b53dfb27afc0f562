package interceptor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
)

// Response is a fetched or cached response. Body can be read once.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Type       schema.ResponseType
	URL        string
	Redirected bool
	Body       io.ReadCloser
}

// Clone duplicates the response so that r and the clone can each be read
// in full. It must be called before either body is consumed.
func (r *Response) Clone() (*Response, error) {
	data, err := r.buffer()
	if err != nil {
		return nil, err
	}
	clone := *r
	clone.Header = r.Header.Clone()
	if r.Body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(data))
	}
	return &clone, nil
}

// buffer drains Body once and replaces it with an equivalent in-memory reader.
func (r *Response) buffer() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", r.URL, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// toStored consumes the body and returns the persisted form.
func (r *Response) toStored() (*contract.StoredResponse, error) {
	data, err := r.buffer()
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return &contract.StoredResponse{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Header:     r.Header.Clone(),
		Type:       r.Type,
		URL:        r.URL,
		Body:       data,
	}, nil
}

// fromStored rebuilds a readable response from a cache entry.
func fromStored(s *contract.StoredResponse) *Response {
	return &Response{
		StatusCode: s.StatusCode,
		Status:     s.Status,
		Header:     s.Header.Clone(),
		Type:       s.Type,
		URL:        s.URL,
		Body:       io.NopCloser(bytes.NewReader(s.Body)),
	}
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
