// main is the entry point for the assetcache CLI.
package main

import (
	"github.com/huangsam/assetcache/cmd"
	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	defer iocache.CloseCaching()

	if err := cmd.Execute(); err != nil {
		// os.Exit skips deferred calls
		iocache.CloseCaching()
		contract.LogFatal("Cannot run assetcache", err)
	}
}
