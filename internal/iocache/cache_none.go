package iocache

import (
	"context"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
)

// noneStorage disables caching: every lookup misses and every write is dropped.
type noneStorage struct{}

var _ contract.CacheStorage = &noneStorage{} // Compile-time check

func (*noneStorage) Open(_ context.Context, name string) (contract.Cache, error) {
	if err := contract.ValidateCacheName(name); err != nil {
		return nil, err
	}
	return &noneCache{name: name}, nil
}

func (*noneStorage) Has(context.Context, string) (bool, error)    { return false, nil }
func (*noneStorage) Delete(context.Context, string) (bool, error) { return false, nil }
func (*noneStorage) Keys(context.Context) ([]string, error)       { return nil, nil }
func (*noneStorage) Close() error                                 { return nil }

func (*noneStorage) GetStatus(context.Context) (schema.StorageStatus, error) {
	return schema.StorageStatus{Backend: string(schema.NoneBackend)}, nil
}

type noneCache struct {
	name string
}

var _ contract.Cache = &noneCache{} // Compile-time check

func (c *noneCache) Name() string { return c.name }

func (*noneCache) Match(context.Context, contract.RequestKey) (*contract.StoredResponse, bool, error) {
	return nil, false, nil
}

func (*noneCache) Put(context.Context, contract.RequestKey, *contract.StoredResponse) error {
	return nil
}

func (*noneCache) PutAll(context.Context, []contract.CacheEntry) error { return nil }

func (*noneCache) Delete(context.Context, contract.RequestKey) (bool, error) { return false, nil }

func (*noneCache) Keys(context.Context) ([]contract.RequestKey, error) { return nil, nil }

func (*noneCache) Entries(context.Context) ([]schema.CacheEntryRecord, error) { return nil, nil }
