package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthCacheHits         uint64
	AuthCacheMisses       uint64
	AuthFailures          map[string]uint64
	AccountsCreated       uint64
	AccountsUpdated       uint64
	RegistrationsRejected uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	authCacheHits         uint64
	authCacheMisses       uint64
	accountsCreated       uint64
	accountsUpdated       uint64
	registrationsRejected uint64

	mu           sync.Mutex
	authFailures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{authFailures: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	failures := make(map[string]uint64, len(m.authFailures))
	for reason, count := range m.authFailures {
		failures[reason] = count
	}
	m.mu.Unlock()

	return Snapshot{
		AuthCacheHits:         atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:       atomic.LoadUint64(&m.authCacheMisses),
		AuthFailures:          failures,
		AccountsCreated:       atomic.LoadUint64(&m.accountsCreated),
		AccountsUpdated:       atomic.LoadUint64(&m.accountsUpdated),
		RegistrationsRejected: atomic.LoadUint64(&m.registrationsRejected),
	}
}

// IncAuthCacheHit increments the credential cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the credential cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncAuthFailure increments the failure counter for the given reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.mu.Lock()
	m.authFailures[reason]++
	m.mu.Unlock()
}

// IncAccountCreated increments the account created counter.
func (m *InMemoryRecorder) IncAccountCreated() {
	atomic.AddUint64(&m.accountsCreated, 1)
}

// IncAccountUpdated increments the account updated counter.
func (m *InMemoryRecorder) IncAccountUpdated() {
	atomic.AddUint64(&m.accountsUpdated, 1)
}

// IncRegistrationRejected increments the rejected registration counter.
func (m *InMemoryRecorder) IncRegistrationRejected() {
	atomic.AddUint64(&m.registrationsRejected, 1)
}
