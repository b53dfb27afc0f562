package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/iocache"
	mcp_internal "github.com/huangsam/assetcache/internal/mcp"
	"github.com/huangsam/assetcache/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*server.MCPServer, contract.CacheStorage) {
	t.Helper()
	origin, err := url.Parse("http://localhost:8000/")
	require.NoError(t, err)
	baseCfg := &contract.Config{
		Origin:    origin,
		CacheName: "mediapipe-cache-v1",
		AllowList: schema.DefaultAllowList(),
	}

	storage, err := iocache.NewCacheStorage(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetCacheStorage").Return(storage)
	return mcp_internal.NewMCPServer(baseCfg, mgr), storage
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerTools(t *testing.T) {
	ctx := context.Background()
	s, storage := newServer(t)

	for _, name := range []string{"mediapipe-cache-v0", "mediapipe-cache-v1"} {
		_, err := storage.Open(ctx, name)
		require.NoError(t, err)
	}
	cache, err := storage.Open(ctx, "mediapipe-cache-v1")
	require.NoError(t, err)
	key, err := contract.NewGetKey("http://localhost:8000/wasm/hand_landmarker.task")
	require.NoError(t, err)
	header := http.Header{"Content-Type": {"application/octet-stream"}}
	require.NoError(t, cache.Put(ctx, key, iocache.ToStoredResponse(200, header, schema.BasicResponse, key.URL, []byte("model"))))

	t.Run("list_caches", func(t *testing.T) {
		res := call(t, s, "list_caches", nil)
		require.False(t, res.IsError)

		var got []map[string]any
		require.NoError(t, json.Unmarshal([]byte(text(res)), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "mediapipe-cache-v0", got[0]["name"])
		assert.Equal(t, false, got[0]["current"])
		assert.Equal(t, true, got[1]["current"])
	})

	t.Run("cache_status", func(t *testing.T) {
		res := call(t, s, "cache_status", nil)
		require.False(t, res.IsError)

		var got schema.StorageStatus
		require.NoError(t, json.Unmarshal([]byte(text(res)), &got))
		assert.Equal(t, "sqlite", got.Backend)
		require.Len(t, got.Namespaces, 2)
		assert.True(t, got.Namespaces[1].Current)
		assert.Equal(t, 1, got.Namespaces[1].TotalEntries)
	})

	t.Run("match_asset cached", func(t *testing.T) {
		res := call(t, s, "match_asset", map[string]any{"url": "wasm/hand_landmarker.task"})
		require.False(t, res.IsError)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(text(res)), &got))
		assert.Equal(t, "http://localhost:8000/wasm/hand_landmarker.task", got["url"])
		assert.Equal(t, true, got["intercepted"])
		assert.Equal(t, true, got["cached"])
		assert.Equal(t, "application/octet-stream", got["content_type"])
		assert.InDelta(t, 5, got["body_size"], 0)
	})

	t.Run("match_asset not intercepted", func(t *testing.T) {
		res := call(t, s, "match_asset", map[string]any{"url": "http://localhost:8000/index.html"})
		require.False(t, res.IsError)
		assert.Contains(t, text(res), `"intercepted": false`)
		assert.Contains(t, text(res), `"cached": false`)
	})

	t.Run("match_asset unknown namespace is not created", func(t *testing.T) {
		res := call(t, s, "match_asset", map[string]any{
			"url":        "wasm/hand_landmarker.task",
			"cache_name": "mediapipe-cache-v9",
		})
		require.False(t, res.IsError)
		assert.Contains(t, text(res), `"cached": false`)

		has, err := storage.Has(ctx, "mediapipe-cache-v9")
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s, _ := newServer(t)

	t.Run("match_asset missing url", func(t *testing.T) {
		res := call(t, s, "match_asset", map[string]any{"url": ""})
		assert.True(t, res.IsError, "The response should indicate an error state")
		assert.Contains(t, text(res), "url is required")
	})

	t.Run("match_asset invalid cache name", func(t *testing.T) {
		res := call(t, s, "match_asset", map[string]any{"url": "/wasm/x", "cache_name": "bad name"})
		assert.True(t, res.IsError)
	})

	t.Run("no storage", func(t *testing.T) {
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetCacheStorage").Return(nil)
		bare := mcp_internal.NewMCPServer(&contract.Config{CacheName: "v1"}, mgr)

		res := call(t, bare, "list_caches", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "not initialized")
	})
}
