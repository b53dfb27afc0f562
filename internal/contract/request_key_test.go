package contract

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestKey(t *testing.T) {
	t.Run("strips fragment", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "http://example.com/wasm/a.wasm?v=1#section", nil)
		require.NoError(t, err)
		key := NewRequestKey(req)
		assert.Equal(t, http.MethodGet, key.Method)
		assert.Equal(t, "http://example.com/wasm/a.wasm?v=1", key.URL)
		assert.True(t, key.Cacheable())
	})

	t.Run("non-get is not cacheable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/wasm/a.wasm", nil)
		key := NewRequestKey(req)
		assert.Equal(t, http.MethodPost, key.Method)
		assert.False(t, key.Cacheable())
	})

	t.Run("empty method defaults to get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/x", nil)
		req.Method = ""
		assert.Equal(t, http.MethodGet, NewRequestKey(req).Method)
	})
}

func TestNewGetKey(t *testing.T) {
	key, err := NewGetKey("http://example.com/wasm/hand_landmarker.task#frag")
	require.NoError(t, err)
	assert.Equal(t, "GET http://example.com/wasm/hand_landmarker.task", key.String())

	_, err = NewGetKey("://bad")
	assert.Error(t, err)
}

func TestRequestKeyMatchesAcrossConstructors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/wasm/a.js", nil)
	fromURL, err := NewGetKey("http://example.com/wasm/a.js")
	require.NoError(t, err)
	assert.Equal(t, fromURL.String(), NewRequestKey(req).String())
}

func TestRequestKeyHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/wasm/a.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	key := NewRequestKey(req)
	assert.Equal(t, "gzip", key.Header.Get("Accept-Encoding"))

	// Headers never change the identity
	assert.Equal(t, "GET http://example.com/wasm/a.js", key.String())

	// The key holds its own copy
	req.Header.Set("Accept-Encoding", "br")
	assert.Equal(t, "gzip", key.Header.Get("Accept-Encoding"))
}
