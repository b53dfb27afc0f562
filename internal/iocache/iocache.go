package iocache

import (
	"sync"

	"github.com/huangsam/assetcache/internal/contract"
)

// CacheStoreManager holds the process-wide cache storage.
type CacheStoreManager struct {
	sync.RWMutex // Protects the storage pointer during initialization
	storage      contract.CacheStorage
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetCacheStorage returns the CacheStorage, or nil before InitStores.
func (mgr *CacheStoreManager) GetCacheStorage() contract.CacheStorage {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.storage
}
