// Package cache provides the check-result cache tiers: an in-process
// memory cache (L1), a redis-backed distributed cache (L2), and a
// Postgres-backed relational fallback, selected by a factory.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xraph/lattice"
)

// Compile-time interface check.
var _ lattice.Cache = (*Memory)(nil)

// Memory is an in-memory cache with per-entry TTL expiration. It serves as
// the L1 tier, and as a process-local L2 for single-node deployments.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	maxSize int
}

type memEntry struct {
	value     lattice.CacheEntry
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memEntry),
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// memKey layout: zone|subjectType|subjectID|permission|objectType|objectID.
// The zone+subject prefix and the object suffix drive the two invalidation
// directions.
func memKey(key lattice.CacheKey) string {
	return strings.Join([]string{
		key.ZoneID, key.SubjectType, key.SubjectID,
		key.Permission, key.ObjectType, key.ObjectID,
	}, "|")
}

// Get returns a cached entry, if present and live.
func (m *Memory) Get(_ context.Context, key lattice.CacheKey) (*lattice.CacheEntry, bool) {
	k := memKey(key)
	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, k)
		m.mu.Unlock()
		return nil, false
	}
	v := e.value
	return &v, true
}

// Set stores an entry with the given lifetime.
func (m *Memory) Set(_ context.Context, key lattice.CacheKey, entry *lattice.CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	k := memKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[k] = &memEntry{
		value:     *entry,
		expiresAt: time.Now().Add(ttl),
	}
}

// InvalidateSubject evicts entries keyed by the subject in the zone.
func (m *Memory) InvalidateSubject(_ context.Context, zoneID, subjectType, subjectID string) {
	prefix := zoneID + "|" + subjectType + "|" + subjectID + "|"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// InvalidateObject evicts entries keyed by the object in the zone.
func (m *Memory) InvalidateObject(_ context.Context, zoneID, objectType, objectID string) {
	zonePrefix := zoneID + "|"
	suffix := "|" + objectType + "|" + objectID
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, zonePrefix) && strings.HasSuffix(k, suffix) {
			delete(m.entries, k)
		}
	}
}

// InvalidateZone evicts every entry in the zone.
func (m *Memory) InvalidateZone(_ context.Context, zoneID string) {
	prefix := zoneID + "|"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// Len returns the live entry count (expired entries may still be counted).
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
