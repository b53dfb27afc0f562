package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAllowList(t *testing.T) {
	list := DefaultAllowList()
	assert.Equal(t, []string{
		"./wasm/vision_wasm_internal.wasm",
		"./wasm/vision_wasm_internal.js",
		"./wasm/hand_landmarker.task",
	}, list)

	// Each call hands out its own slice
	list[0] = "changed"
	assert.Equal(t, "./wasm/vision_wasm_internal.wasm", DefaultAllowList()[0])
}

func TestValidDatabaseBackends(t *testing.T) {
	for _, b := range []DatabaseBackend{SQLiteBackend, MySQLBackend, PostgreSQLBackend, NoneBackend} {
		_, ok := ValidDatabaseBackends[b]
		assert.True(t, ok, string(b))
	}
	_, ok := ValidDatabaseBackends["redis"]
	assert.False(t, ok)
}
