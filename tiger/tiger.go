// Package tiger implements the bitmap-indexed check cache. A bitmap keyed
// by (subject, permission, resource_type, zone) holds the dense int IDs of
// every resource the subject may reach, answering broad "which resources
// can S see" queries with set operations instead of per-object graph
// checks. Bitmaps are a derived, rebuildable index, never a source of
// truth: each carries the revision it was built against, and any write
// touching the (zone, resource_type) bumps the revision, lazily
// invalidating every bitmap for it without enumerating them.
package tiger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
)

// Key identifies one bitmap.
type Key struct {
	ZoneID       string
	SubjectType  string
	SubjectID    string
	Permission   string
	ResourceType string
}

func (k Key) String() string {
	return strings.Join([]string{k.ZoneID, k.SubjectType, k.SubjectID, k.Permission, k.ResourceType}, ":")
}

// RevisionStore tracks the write revision of each (zone, resource_type).
type RevisionStore interface {
	// Current returns the revision; zero if never written.
	Current(ctx context.Context, zoneID, resourceType string) (uint64, error)

	// Bump advances the revision and returns the new value.
	Bump(ctx context.Context, zoneID, resourceType string) (uint64, error)
}

// BitmapStore persists serialized bitmaps for cross-process sharing.
// Implementations degrade to a miss on backend failure.
type BitmapStore interface {
	Get(ctx context.Context, key Key) (data []byte, revision uint64, ok bool)
	Set(ctx context.Context, key Key, data []byte, revision uint64, ttl time.Duration)
}

type entry struct {
	bm       *roaring.Bitmap
	revision uint64
}

// Cache is the bitmap cache tier. The local map serves the hot path; the
// optional remote store shares bitmaps across processes.
type Cache struct {
	revs   RevisionStore
	remote BitmapStore
	ttl    time.Duration

	mu    sync.RWMutex
	local map[string]entry

	logger *slog.Logger
}

// Option configures the cache.
type Option func(*Cache)

// WithRemote attaches a cross-process bitmap store.
func WithRemote(bs BitmapStore) Option {
	return func(c *Cache) { c.remote = bs }
}

// WithTTL sets the remote persistence lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a bitmap cache over the given revision store.
func New(revs RevisionStore, opts ...Option) *Cache {
	c := &Cache{
		revs:   revs,
		ttl:    time.Hour,
		local:  make(map[string]entry),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Revision returns the current write revision for (zone, resource_type).
func (c *Cache) Revision(ctx context.Context, zoneID, resourceType string) uint64 {
	rev, err := c.revs.Current(ctx, zoneID, resourceType)
	if err != nil {
		c.logger.Warn("tiger: revision read failed", slog.Any("error", err))
		return 0
	}
	return rev
}

// BumpRevision advances the write revision for (zone, resource_type),
// invalidating every bitmap built against the old one.
func (c *Cache) BumpRevision(ctx context.Context, zoneID, resourceType string) {
	if _, err := c.revs.Bump(ctx, zoneID, resourceType); err != nil {
		c.logger.Warn("tiger: revision bump failed", slog.Any("error", err))
	}
}

// Lookup returns the bitmap for the key if one exists and its stored
// revision equals the current (zone, resource_type) revision.
func (c *Cache) Lookup(ctx context.Context, key Key) (*roaring.Bitmap, bool) {
	current := c.Revision(ctx, key.ZoneID, key.ResourceType)

	c.mu.RLock()
	e, ok := c.local[key.String()]
	c.mu.RUnlock()
	if ok && e.revision == current {
		return e.bm.Clone(), true
	}

	if c.remote == nil {
		return nil, false
	}
	data, revision, ok := c.remote.Get(ctx, key)
	if !ok || revision != current {
		return nil, false
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		c.logger.Warn("tiger: bitmap decode failed", slog.String("key", key.String()), slog.Any("error", err))
		return nil, false
	}

	c.mu.Lock()
	c.local[key.String()] = entry{bm: bm, revision: revision}
	c.mu.Unlock()

	return bm.Clone(), true
}

// Store saves a bitmap built at the given revision, locally and remotely.
func (c *Cache) Store(ctx context.Context, key Key, bm *roaring.Bitmap, revision uint64) {
	c.mu.Lock()
	c.local[key.String()] = entry{bm: bm.Clone(), revision: revision}
	c.mu.Unlock()

	if c.remote == nil {
		return
	}
	data, err := bm.MarshalBinary()
	if err != nil {
		c.logger.Warn("tiger: bitmap encode failed", slog.String("key", key.String()), slog.Any("error", err))
		return
	}
	c.remote.Set(ctx, key, data, revision, c.ttl)
}

// Contains reports whether the bitmap for the key holds the int ID.
// The second return is false when no valid bitmap exists.
func (c *Cache) Contains(ctx context.Context, key Key, intID uint32) (bool, bool) {
	bm, ok := c.Lookup(ctx, key)
	if !ok {
		return false, false
	}
	return bm.Contains(intID), true
}
