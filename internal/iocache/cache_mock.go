package iocache

import (
	"context"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetCacheStorage implements the CacheManager interface.
func (m *MockCacheManager) GetCacheStorage() contract.CacheStorage {
	ret := m.Called()
	storage, _ := ret.Get(0).(contract.CacheStorage)
	return storage
}

// MockCacheStorage is a mock implementation of CacheStorage for testing.
type MockCacheStorage struct {
	mock.Mock
}

var _ contract.CacheStorage = &MockCacheStorage{} // Compile-time check

// Open implements the CacheStorage interface.
func (m *MockCacheStorage) Open(ctx context.Context, name string) (contract.Cache, error) {
	args := m.Called(ctx, name)
	cache, _ := args.Get(0).(contract.Cache)
	return cache, args.Error(1)
}

// Has implements the CacheStorage interface.
func (m *MockCacheStorage) Has(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// Delete implements the CacheStorage interface.
func (m *MockCacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// Keys implements the CacheStorage interface.
func (m *MockCacheStorage) Keys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

// GetStatus implements the CacheStorage interface.
func (m *MockCacheStorage) GetStatus(ctx context.Context) (schema.StorageStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StorageStatus), args.Error(1)
}

// Close implements the CacheStorage interface.
func (m *MockCacheStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockCache is a mock implementation of Cache for testing.
type MockCache struct {
	mock.Mock
}

var _ contract.Cache = &MockCache{} // Compile-time check

// Name implements the Cache interface.
func (m *MockCache) Name() string {
	return m.Called().String(0)
}

// Match implements the Cache interface.
func (m *MockCache) Match(ctx context.Context, key contract.RequestKey) (*contract.StoredResponse, bool, error) {
	args := m.Called(ctx, key)
	resp, _ := args.Get(0).(*contract.StoredResponse)
	return resp, args.Bool(1), args.Error(2)
}

// Put implements the Cache interface.
func (m *MockCache) Put(ctx context.Context, key contract.RequestKey, resp *contract.StoredResponse) error {
	args := m.Called(ctx, key, resp)
	return args.Error(0)
}

// PutAll implements the Cache interface.
func (m *MockCache) PutAll(ctx context.Context, entries []contract.CacheEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// Delete implements the Cache interface.
func (m *MockCache) Delete(ctx context.Context, key contract.RequestKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// Keys implements the Cache interface.
func (m *MockCache) Keys(ctx context.Context) ([]contract.RequestKey, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]contract.RequestKey)
	return keys, args.Error(1)
}

// Entries implements the Cache interface.
func (m *MockCache) Entries(ctx context.Context) ([]schema.CacheEntryRecord, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]schema.CacheEntryRecord)
	return entries, args.Error(1)
}
