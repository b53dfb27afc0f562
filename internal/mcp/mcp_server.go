// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the asset cache MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Asset Cache Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: list_caches ---
	s.AddTool(mcp.NewTool("list_caches",
		mcp.WithDescription("List cache namespaces and mark the one the proxy serves from."),
	), h.handleListCaches)

	// --- 2. Tool: cache_status ---
	s.AddTool(mcp.NewTool("cache_status",
		mcp.WithDescription("Report backend, schema version and per-namespace entry counts and sizes."),
	), h.handleCacheStatus)

	// --- 3. Tool: match_asset ---
	s.AddTool(mcp.NewTool("match_asset",
		mcp.WithDescription("Check whether a URL is intercepted and whether the current cache holds it."),
		mcp.WithString("url", mcp.Description("Absolute URL, or a path resolved against the origin."), mcp.Required()),
		mcp.WithString("cache_name", mcp.Description("Namespace to look in (defaults to the configured cache name).")),
	), h.handleMatchAsset)

	return s
}

// StartMCPServer starts the asset cache MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
