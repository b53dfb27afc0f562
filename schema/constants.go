package schema

// Custom string types for type safety.
type (
	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string

	// ResponseType classifies a response by how it crossed the origin boundary.
	ResponseType string

	// LifecycleState is the registration state of an interceptor version.
	LifecycleState string
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All response types supported.
const (
	BasicResponse          ResponseType = "basic" // same-origin, readable
	CORSResponse           ResponseType = "cors"
	OpaqueResponse         ResponseType = "opaque"
	OpaqueRedirectResponse ResponseType = "opaqueredirect"
	ErrorResponse          ResponseType = "error"
)

// All lifecycle states an interceptor version moves through.
const (
	ParsedState     LifecycleState = "parsed"
	InstallingState LifecycleState = "installing"
	InstalledState  LifecycleState = "installed" // waiting
	ActivatingState LifecycleState = "activating"
	ActivatedState  LifecycleState = "activated"
	RedundantState  LifecycleState = "redundant"
)

// Defaults for the asset cache deployment.
const (
	// DefaultCacheName is the namespace of the current cache store.
	// Bumping it is the only invalidation mechanism.
	DefaultCacheName = "mediapipe-cache-v1"

	// DefaultOrigin is the upstream that serves the host page and its assets.
	DefaultOrigin = "http://localhost:8000/"

	// DefaultListenAddr is where the front proxy listens.
	DefaultListenAddr = ":8080"
)

// DefaultAllowList returns the asset fragments that are intercepted and seeded at install.
func DefaultAllowList() []string {
	return []string{
		"./wasm/vision_wasm_internal.wasm",
		"./wasm/vision_wasm_internal.js",
		"./wasm/hand_landmarker.task",
	}
}

// ValidDatabaseBackends lists all valid cache backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
