//go:build basic

// Package integration contains integration tests for assetcache.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInstallActivateVerification seeds two namespaces against a local origin
// and verifies activation leaves only the current one.
func TestInstallActivateVerification(t *testing.T) {
	origin, hits := newAssetOrigin(t)
	t.Setenv("ASSETCACHE_ORIGIN", origin.URL+"/")
	t.Setenv("ASSETCACHE_CACHE_BACKEND", "sqlite")
	t.Setenv("ASSETCACHE_CACHE_DB_CONNECT", filepath.Join(t.TempDir(), "cache.db"))
	t.Setenv("ASSETCACHE_COLOR", "no")

	_, err := runCommand(t, "install", "--cache-name", "mediapipe-cache-v1")
	require.NoError(t, err)
	assert.Equal(t, 1, hits("/wasm/hand_landmarker.task"))

	out, err := runCommand(t, "cache", "list", "mediapipe-cache-v1")
	require.NoError(t, err)
	for _, asset := range []string{"vision_wasm_internal.wasm", "vision_wasm_internal.js", "hand_landmarker.task"} {
		assert.Contains(t, out, asset)
	}

	_, err = runCommand(t, "install", "--cache-name", "mediapipe-cache-v2")
	require.NoError(t, err)
	_, err = runCommand(t, "activate", "--cache-name", "mediapipe-cache-v2")
	require.NoError(t, err)

	out, err = runCommand(t, "cache", "list", "--cache-name", "mediapipe-cache-v2")
	require.NoError(t, err)
	assert.Contains(t, out, "mediapipe-cache-v2")
	assert.NotContains(t, out, "mediapipe-cache-v1")

	_, err = runCommand(t, "cache", "list", "mediapipe-cache-v1")
	assert.Error(t, err)
}

// TestInstallFailureStoresNothing checks that one missing asset leaves the store empty.
func TestInstallFailureStoresNothing(t *testing.T) {
	origin, _ := newAssetOrigin(t)
	t.Setenv("ASSETCACHE_ORIGIN", origin.URL+"/")
	t.Setenv("ASSETCACHE_CACHE_BACKEND", "sqlite")
	t.Setenv("ASSETCACHE_CACHE_DB_CONNECT", filepath.Join(t.TempDir(), "cache.db"))
	t.Setenv("ASSETCACHE_COLOR", "no")

	_, err := runCommand(t, "install", "--allow-list", "./wasm/vision_wasm_internal.js,./missing.bin")
	require.Error(t, err)

	out, err := runCommand(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Entries: 0")
}
