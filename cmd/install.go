package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// installCmd seeds the current cache store without serving.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Seed the current cache store with every allow-listed asset",
	Long: `Fetch every allow-list entry from the origin and store them as one batch.

Either all assets are stored or none are. Existing stores are left alone;
run activate afterwards to delete stale namespaces.

Examples:
  # Warm the cache before starting the proxy
  assetcache install --origin https://cdn.example.com/app/`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ic, err := newInterceptor(newLogger())
		if err != nil {
			return err
		}
		result := ic.Install(rootCtx)
		if result.Err != nil {
			return result.Err
		}
		cmd.Printf("Cached %d assets in %s\n", len(cfg.AllowList), ic.CacheName())
		return nil
	},
}

// activateCmd deletes every store other than the current one.
var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Delete every cache store other than the current one",
	Long: `Remove stale namespaces so only --cache-name remains.

Examples:
  # Drop mediapipe-cache-v1 after moving to v2
  assetcache activate --cache-name mediapipe-cache-v2`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ic, err := newInterceptor(newLogger())
		if err != nil {
			return err
		}
		if err := ic.Activate(rootCtx); err != nil {
			return fmt.Errorf("failed to activate %s: %w", ic.CacheName(), err)
		}
		cmd.Printf("Activated %s\n", ic.CacheName())
		return nil
	},
}
