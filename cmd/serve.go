package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/huangsam/assetcache/internal/interceptor"
	"github.com/huangsam/assetcache/internal/proxy"
	"github.com/spf13/cobra"
)

// serveCmd runs the front proxy.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the caching front proxy",
	Long: `Install and activate the configured version, then serve HTTP.

Requests whose URL contains an allow-list fragment are answered cache-first.
Everything else is proxied to the origin untouched. If the install batch
fails the proxy still starts, and assets are cached as they are requested.

Examples:
  # Proxy a local dev server
  assetcache serve --origin http://localhost:8000/ --listen :8080

  # Invalidate every previously cached asset
  assetcache serve --cache-name mediapipe-cache-v2`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := newLogger()
		ic, err := newInterceptor(logger)
		if err != nil {
			return err
		}

		reg := interceptor.NewRegistration()
		if _, err := reg.Register(ctx, ic); err != nil {
			return fmt.Errorf("failed to activate %s: %w", ic.CacheName(), err)
		}

		srv, err := proxy.New(cfg.ListenAddr, cfg.Origin, reg, logger)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	},
}
