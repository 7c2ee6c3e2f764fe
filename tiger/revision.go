package tiger

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time interface checks.
var (
	_ RevisionStore = (*MemoryRevisions)(nil)
	_ RevisionStore = (*RedisRevisions)(nil)
	_ BitmapStore   = (*RedisBitmaps)(nil)
)

// MemoryRevisions is a process-local revision store for single-node
// deployments and tests.
type MemoryRevisions struct {
	mu   sync.Mutex
	revs map[string]uint64
}

// NewMemoryRevisions creates an in-memory revision store.
func NewMemoryRevisions() *MemoryRevisions {
	return &MemoryRevisions{revs: make(map[string]uint64)}
}

func revKey(zoneID, resourceType string) string {
	return zoneID + ":" + resourceType
}

// Current returns the revision; zero if never written.
func (m *MemoryRevisions) Current(_ context.Context, zoneID, resourceType string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revs[revKey(zoneID, resourceType)], nil
}

// Bump advances the revision and returns the new value.
func (m *MemoryRevisions) Bump(_ context.Context, zoneID, resourceType string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revs[revKey(zoneID, resourceType)]++
	return m.revs[revKey(zoneID, resourceType)], nil
}

// RedisRevisions shares revision counters across processes via atomic INCR.
type RedisRevisions struct {
	client *redis.Client
	prefix string
}

// NewRedisRevisions creates a redis-backed revision store.
func NewRedisRevisions(client *redis.Client, prefix string) *RedisRevisions {
	if prefix == "" {
		prefix = "lattice:tiger:rev:"
	}
	return &RedisRevisions{client: client, prefix: prefix}
}

// Current returns the revision; zero if never written.
func (r *RedisRevisions) Current(ctx context.Context, zoneID, resourceType string) (uint64, error) {
	v, err := r.client.Get(ctx, r.prefix+revKey(zoneID, resourceType)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Bump advances the revision atomically and returns the new value.
func (r *RedisRevisions) Bump(ctx context.Context, zoneID, resourceType string) (uint64, error) {
	v, err := r.client.Incr(ctx, r.prefix+revKey(zoneID, resourceType)).Result()
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// RedisBitmaps shares serialized bitmaps across processes. The stored value
// is an 8-byte big-endian revision followed by the roaring payload.
type RedisBitmaps struct {
	client *redis.Client
	prefix string
}

// NewRedisBitmaps creates a redis-backed bitmap store.
func NewRedisBitmaps(client *redis.Client, prefix string) *RedisBitmaps {
	if prefix == "" {
		prefix = "lattice:tiger:bm:"
	}
	return &RedisBitmaps{client: client, prefix: prefix}
}

// Get returns the payload and the revision it was built at. A backend
// failure degrades to a miss.
func (r *RedisBitmaps) Get(ctx context.Context, key Key) ([]byte, uint64, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key.String()).Bytes()
	if err != nil || len(raw) < 8 {
		return nil, 0, false
	}
	return raw[8:], binary.BigEndian.Uint64(raw[:8]), true
}

// Set stores the payload with its build revision and lifetime.
func (r *RedisBitmaps) Set(ctx context.Context, key Key, data []byte, revision uint64, ttl time.Duration) {
	raw := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(raw[:8], revision)
	copy(raw[8:], data)
	r.client.Set(ctx, r.prefix+key.String(), raw, ttl)
}
