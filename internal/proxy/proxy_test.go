package proxy

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/interceptor"
	"github.com/huangsam/assetcache/internal/iocache"
	"github.com/huangsam/assetcache/schema"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOrigin struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newCountingOrigin(t *testing.T) *countingOrigin {
	t.Helper()
	o := &countingOrigin{hits: map[string]int{}}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.hits[r.Method+" "+r.URL.Path]++
		o.mu.Unlock()

		switch {
		case strings.HasPrefix(r.URL.Path, "/wasm/"):
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = io.WriteString(w, "asset:"+r.URL.Path)
		case r.URL.Path == "/echo":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("X-Method", r.Method)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
		default:
			_, _ = io.WriteString(w, "page:"+r.URL.Path+"?"+r.URL.RawQuery)
		}
	}))
	t.Cleanup(o.Close)
	return o
}

func (o *countingOrigin) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[key]
}

type fixture struct {
	origin *countingOrigin
	reg    *interceptor.Registration
	proxy  *Server
	hook   *logtest.Hook
}

func newFixture(t *testing.T, register bool) *fixture {
	t.Helper()
	origin := newCountingOrigin(t)
	originURL, err := url.Parse(origin.URL + "/")
	require.NoError(t, err)

	storage, err := iocache.NewCacheStorage(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	logger, hook := logtest.NewNullLogger()
	cfg := &contract.Config{
		Origin:       originURL,
		CacheName:    schema.DefaultCacheName,
		AllowList:    schema.DefaultAllowList(),
		FetchTimeout: 5 * time.Second,
	}
	ic, err := interceptor.New(cfg, storage, nil, logger)
	require.NoError(t, err)

	reg := interceptor.NewRegistration()
	if register {
		result, err := reg.Register(context.Background(), ic)
		require.NoError(t, err)
		require.NoError(t, result.Err)
	}

	proxy, err := New("127.0.0.1:0", originURL, reg, logger)
	require.NoError(t, err)
	return &fixture{origin: origin, reg: reg, proxy: proxy, hook: hook}
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec.Result()
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestNew(t *testing.T) {
	_, err := New(":0", nil, interceptor.NewRegistration(), nil)
	assert.Error(t, err)

	origin, _ := url.Parse("http://localhost:8000/")
	_, err = New(":0", origin, nil, nil)
	assert.Error(t, err)
}

func TestUpstreamURL(t *testing.T) {
	origin, err := url.Parse("http://localhost:8000/app/")
	require.NoError(t, err)
	s, err := New(":0", origin, interceptor.NewRegistration(), nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/wasm/hand_landmarker.task?v=1", nil)
	assert.Equal(t, "http://localhost:8000/app/wasm/hand_landmarker.task?v=1", s.UpstreamURL(req).String())
}

func TestServeHTTP(t *testing.T) {
	t.Run("intercepted asset is served from cache", func(t *testing.T) {
		f := newFixture(t, true)
		before := f.origin.count("GET /wasm/hand_landmarker.task")

		resp := do(t, f.proxy, http.MethodGet, "/wasm/hand_landmarker.task", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, "asset:/wasm/hand_landmarker.task", readAll(t, resp))
		assert.Equal(t, before, f.origin.count("GET /wasm/hand_landmarker.task"))
	})

	t.Run("other requests pass through", func(t *testing.T) {
		f := newFixture(t, true)

		resp := do(t, f.proxy, http.MethodGet, "/index.html?lang=en", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "page:/index.html?lang=en", readAll(t, resp))

		resp = do(t, f.proxy, http.MethodPost, "/echo", strings.NewReader("payload"))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, http.MethodPost, resp.Header.Get("X-Method"))
		assert.Equal(t, "payload", readAll(t, resp))

		// Pass-through never touches the cache
		resp = do(t, f.proxy, http.MethodGet, "/index.html?lang=en", nil)
		_ = readAll(t, resp)
		assert.Equal(t, 2, f.origin.count("GET /index.html"))
	})

	t.Run("no controller passes through", func(t *testing.T) {
		f := newFixture(t, false)

		for range 2 {
			resp := do(t, f.proxy, http.MethodGet, "/wasm/vision_wasm_internal.js", nil)
			assert.Equal(t, "asset:/wasm/vision_wasm_internal.js", readAll(t, resp))
		}
		assert.Equal(t, 2, f.origin.count("GET /wasm/vision_wasm_internal.js"))
	})

	t.Run("fetch failure is bad gateway", func(t *testing.T) {
		f := newFixture(t, true)
		f.origin.Close()

		// Not seeded, so the interceptor has to go to the network
		resp := do(t, f.proxy, http.MethodGet, "/wasm/vision_wasm_internal.js?build=2", nil)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		_ = readAll(t, resp)

		var fetchFailed bool
		for _, e := range f.hook.AllEntries() {
			if e.Message == "Fetch failed" {
				fetchFailed = true
			}
		}
		assert.True(t, fetchFailed)
	})
}

func TestServe(t *testing.T) {
	f := newFixture(t, true)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.proxy.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/wasm/vision_wasm_internal.wasm")
	require.NoError(t, err)
	assert.Equal(t, "asset:/wasm/vision_wasm_internal.wasm", readAll(t, resp))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
