package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/assetcache/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []schema.CacheEntryRecord {
	now := time.Now()
	return []schema.CacheEntryRecord{
		{
			Namespace:    "mediapipe-cache-v1",
			Key:          "sha256:aaaa",
			Method:       "GET",
			URL:          "http://localhost:8000/wasm/vision_wasm_internal.wasm",
			StatusCode:   200,
			ResponseType: "basic",
			ContentType:  "application/wasm",
			BodySize:     9_400_000,
			StoredSize:   3_100_000,
			StoredAt:     now.Add(-time.Hour),
		},
		{
			Namespace:    "mediapipe-cache-v1",
			Key:          "sha256:bbbb",
			Method:       "GET",
			URL:          "http://localhost:8000/wasm/hand_landmarker.task",
			StatusCode:   200,
			ResponseType: "basic",
			BodySize:     7_800_000,
			StoredSize:   7_600_000,
			StoredAt:     now,
		},
	}
}

func TestCacheEntryStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(CacheEntry))
	require.NotNil(t, s)

	expectedColumns := []string{
		"namespace",
		"cache_key",
		"method",
		"url",
		"status_code",
		"response_type",
		"content_type",
		"body_size",
		"stored_size",
		"stored_at",
	}

	for _, colName := range expectedColumns {
		col, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestConvertCacheEntryRecords(t *testing.T) {
	records := sampleRecords()
	converted := ConvertCacheEntryRecords(records)
	require.Len(t, converted, 2)

	assert.Equal(t, "sha256:aaaa", converted[0].CacheKey)
	assert.Equal(t, int32(200), converted[0].StatusCode)
	require.NotNil(t, converted[0].ContentType)
	assert.Equal(t, "application/wasm", *converted[0].ContentType)

	// Missing content type becomes a null column
	assert.Nil(t, converted[1].ContentType)
}

func TestWriteCacheEntriesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "entries.parquet")
	data := ConvertCacheEntryRecords(sampleRecords())

	err := WriteCacheEntriesParquet(data, outputPath)
	require.NoError(t, err, "Writing Parquet file should not produce error")

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should not be empty")

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[CacheEntry](file)
	defer reader.Close()

	readData := make([]CacheEntry, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	assert.Equal(t, len(data), n, "Should read all records")

	for i := range data {
		assert.Equal(t, data[i].URL, readData[i].URL)
		assert.Equal(t, data[i].BodySize, readData[i].BodySize)
		assert.Equal(t, data[i].StoredSize, readData[i].StoredSize)
		assert.WithinDuration(t, data[i].StoredAt, readData[i].StoredAt, time.Microsecond)
		if data[i].ContentType == nil {
			assert.Nil(t, readData[i].ContentType)
		} else {
			require.NotNil(t, readData[i].ContentType)
			assert.Equal(t, *data[i].ContentType, *readData[i].ContentType)
		}
	}
}

func TestWriteCacheNamespacesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "namespaces.parquet")
	data := ConvertCacheStatuses([]schema.CacheStatus{
		{Namespace: "mediapipe-cache-v0", CreatedAt: time.Now().Add(-time.Hour)},
		{Namespace: "mediapipe-cache-v1", Current: true, TotalEntries: 3, TotalBytes: 100, StoredBytes: 40, CreatedAt: time.Now()},
	})

	require.NoError(t, WriteCacheNamespacesParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[CacheNamespace](file)
	defer reader.Close()
	assert.Equal(t, int64(2), reader.NumRows())

	readData := make([]CacheNamespace, 2)
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)
	assert.False(t, readData[0].Current)
	assert.True(t, readData[1].Current)
	assert.Equal(t, int64(3), readData[1].TotalEntries)
}

func TestWriteCacheEntriesParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")

	require.NoError(t, WriteCacheEntriesParquet([]CacheEntry{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Parquet footer should still be written")
}

func TestWriteCacheEntriesParquet_BadPath(t *testing.T) {
	err := WriteCacheEntriesParquet(nil, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	assert.Error(t, err)
}
