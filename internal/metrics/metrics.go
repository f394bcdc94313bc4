// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncAuthCacheHit()
	IncAuthCacheMiss()
	IncAuthFailure(reason string) // reason: "missing_credentials", "unknown_account", "bad_password", "backend_error"

	// Account lifecycle metrics
	IncAccountCreated()
	IncAccountUpdated()
	IncRegistrationRejected()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
