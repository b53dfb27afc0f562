package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/interceptor"
	"github.com/huangsam/assetcache/internal/iocache"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// namespaceInfo is one row of list_caches.
type namespaceInfo struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
}

// assetMatch is the result of match_asset.
type assetMatch struct {
	URL          string `json:"url"`
	CacheName    string `json:"cache_name"`
	Intercepted  bool   `json:"intercepted"`
	Cached       bool   `json:"cached"`
	StatusCode   int    `json:"status_code,omitempty"`
	ResponseType string `json:"response_type,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	BodySize     int    `json:"body_size,omitempty"`
	StoredAt     string `json:"stored_at,omitempty"`
}

func (h *toolHandler) storage() (contract.CacheStorage, error) {
	if h.mgr == nil || h.mgr.GetCacheStorage() == nil {
		return nil, errors.New("cache storage is not initialized")
	}
	return h.mgr.GetCacheStorage(), nil
}

func (h *toolHandler) handleListCaches(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storage, err := h.storage()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	names, err := storage.Keys(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing caches failed: %v", err)), nil
	}

	result := make([]namespaceInfo, 0, len(names))
	for _, name := range names {
		result = append(result, namespaceInfo{Name: name, Current: name == h.baseCfg.CacheName})
	}
	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCacheStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storage, err := h.storage()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := storage.GetStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cache status failed: %v", err)), nil
	}
	iocache.MarkCurrent(&status, h.baseCfg.CacheName)

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleMatchAsset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("url", "")
	if raw == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	cfg := h.baseCfg.Clone()
	if name := request.GetString("cache_name", ""); name != "" {
		if err := contract.ValidateCacheName(name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg.CacheName = name
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid url: %v", err)), nil
	}
	if !ref.IsAbs() && cfg.Origin != nil {
		ref = cfg.Origin.ResolveReference(ref)
	}

	storage, err := h.storage()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := assetMatch{URL: ref.String(), CacheName: cfg.CacheName}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ic, err := interceptor.New(cfg, storage, nil, logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result.Intercepted = ic.Matches(result.URL)

	// Read-only lookups never create the namespace
	exists, err := storage.Has(ctx, cfg.CacheName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cache lookup failed: %v", err)), nil
	}
	if exists {
		cache, err := storage.Open(ctx, cfg.CacheName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cache lookup failed: %v", err)), nil
		}
		key, err := contract.NewGetKey(result.URL)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		stored, found, err := cache.Match(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cache lookup failed: %v", err)), nil
		}
		if found {
			result.Cached = true
			result.StatusCode = stored.StatusCode
			result.ResponseType = string(stored.Type)
			result.ContentType = stored.Header.Get("Content-Type")
			result.BodySize = len(stored.Body)
			result.StoredAt = stored.StoredAt.Format("2006-01-02T15:04:05Z07:00")
		}
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
