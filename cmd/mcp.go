package cmd

import (
	"github.com/huangsam/assetcache/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the asset cache MCP server",
	Long:  `Launch an MCP server that lets AI agents inspect cache stores and check allow-list matches via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdio carries the protocol, so nothing else may write to stdout
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
