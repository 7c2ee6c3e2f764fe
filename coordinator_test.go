package lattice

import (
	"context"
	"sync"
	"testing"
	"time"
)

// countingTiger records revision bumps per (zone, resource_type).
type countingTiger struct {
	mu    sync.Mutex
	bumps map[string]int
}

func newCountingTiger() *countingTiger {
	return &countingTiger{bumps: make(map[string]int)}
}

func (c *countingTiger) BumpRevision(_ context.Context, zoneID, resourceType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumps[zoneID+":"+resourceType]++
}

func (c *countingTiger) count(zoneID, resourceType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bumps[zoneID+":"+resourceType]
}

// mapCache is a minimal Cache recording invalidation calls.
type mapCache struct {
	mu      sync.Mutex
	entries map[CacheKey]*CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[CacheKey]*CacheEntry)}
}

func (m *mapCache) Get(_ context.Context, key CacheKey) (*CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok
}

func (m *mapCache) Set(_ context.Context, key CacheKey, entry *CacheEntry, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
}

func (m *mapCache) InvalidateSubject(_ context.Context, zoneID, subjectType, subjectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.ZoneID == zoneID && k.SubjectType == subjectType && k.SubjectID == subjectID {
			delete(m.entries, k)
		}
	}
}

func (m *mapCache) InvalidateObject(_ context.Context, zoneID, objectType, objectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.ZoneID == zoneID && k.ObjectType == objectType && k.ObjectID == objectID {
			delete(m.entries, k)
		}
	}
}

func (m *mapCache) InvalidateZone(_ context.Context, zoneID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.ZoneID == zoneID {
			delete(m.entries, k)
		}
	}
}

func (m *mapCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cacheKey(zone, subjectID, objectID string) CacheKey {
	return CacheKey{
		ZoneID:      zone,
		SubjectType: SubjectUser,
		SubjectID:   subjectID,
		Permission:  PermissionViewer,
		ObjectType:  ObjectPath,
		ObjectID:    objectID,
	}
}

func TestInvalidateForWriteTargeted(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newMapCache(), newMapCache()
	tg := newCountingTiger()
	c := NewCacheCoordinator(l1, l2, tg, InvalidationTargeted, nil)

	allow := &CacheEntry{Allowed: true}
	for _, tier := range []*mapCache{l1, l2} {
		tier.Set(ctx, cacheKey("z1", "alice", "/doc"), allow, 0)
		tier.Set(ctx, cacheKey("z1", "bob", "/doc"), allow, 0)
		tier.Set(ctx, cacheKey("z1", "carol", "/other"), allow, 0)
		tier.Set(ctx, cacheKey("z2", "alice", "/doc"), allow, 0)
	}

	c.InvalidateForWrite(ctx,
		Subject{Type: SubjectUser, ID: "alice"},
		Object{Type: ObjectPath, ID: "/doc"},
		"z1")

	for _, tier := range []*mapCache{l1, l2} {
		if _, ok := tier.Get(ctx, cacheKey("z1", "alice", "/doc")); ok {
			t.Fatal("subject entry should be evicted")
		}
		if _, ok := tier.Get(ctx, cacheKey("z1", "bob", "/doc")); ok {
			t.Fatal("object-side entry should be evicted")
		}
		if _, ok := tier.Get(ctx, cacheKey("z1", "carol", "/other")); !ok {
			t.Fatal("unrelated subject must survive targeted invalidation")
		}
		if _, ok := tier.Get(ctx, cacheKey("z2", "alice", "/doc")); !ok {
			t.Fatal("other zones must survive targeted invalidation")
		}
	}

	if tg.count("z1", ObjectPath) != 1 {
		t.Fatalf("expected one bump for the object type, got %d", tg.count("z1", ObjectPath))
	}
	if tg.count("z1", SubjectUser) != 1 {
		t.Fatalf("expected one bump for the subject type, got %d", tg.count("z1", SubjectUser))
	}
}

func TestInvalidateForWriteZoneWide(t *testing.T) {
	ctx := context.Background()
	l1 := newMapCache()
	c := NewCacheCoordinator(l1, nil, nil, InvalidationZoneWide, nil)

	l1.Set(ctx, cacheKey("z1", "alice", "/doc"), &CacheEntry{Allowed: true}, 0)
	l1.Set(ctx, cacheKey("z1", "carol", "/other"), &CacheEntry{Allowed: true}, 0)
	l1.Set(ctx, cacheKey("z2", "alice", "/doc"), &CacheEntry{Allowed: true}, 0)

	c.InvalidateForWrite(ctx,
		Subject{Type: SubjectUser, ID: "alice"},
		Object{Type: ObjectPath, ID: "/doc"},
		"z1")

	if l1.len() != 1 {
		t.Fatalf("expected only the z2 entry to survive, got %d entries", l1.len())
	}
	if _, ok := l1.Get(ctx, cacheKey("z2", "alice", "/doc")); !ok {
		t.Fatal("other zones must survive zone-wide invalidation")
	}
}

func TestInvalidateBatchDeduplicates(t *testing.T) {
	ctx := context.Background()
	tg := newCountingTiger()
	c := NewCacheCoordinator(nil, nil, tg, InvalidationTargeted, nil)

	subjects := []Subject{
		{Type: ObjectPath, ID: "/a/1"},
		{Type: ObjectPath, ID: "/a/2"},
		{Type: ObjectPath, ID: "/a/1"},
	}
	c.InvalidateBatch(ctx, subjects, []string{ObjectPath, ObjectPath, ObjectPath}, "z1")

	if tg.count("z1", ObjectPath) != 1 {
		t.Fatalf("expected a single revision bump per resource type, got %d", tg.count("z1", ObjectPath))
	}
}

func TestNamespaceInvalidators(t *testing.T) {
	ctx := context.Background()
	c := NewCacheCoordinator(nil, nil, nil, InvalidationTargeted, nil)

	var mu sync.Mutex
	var fired []string
	c.RegisterNamespaceInvalidator("dircache", func(_ context.Context, zoneID string, subject Subject) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, zoneID+":"+subject.ID)
	})

	c.InvalidateForWrite(ctx,
		Subject{Type: SubjectUser, ID: "alice"},
		Object{Type: ObjectPath, ID: "/doc"},
		"z1")

	mu.Lock()
	if len(fired) != 1 || fired[0] != "z1:alice" {
		mu.Unlock()
		t.Fatalf("expected one callback for z1:alice, got %v", fired)
	}
	mu.Unlock()

	// Batch invalidation fires once per distinct subject.
	c.InvalidateBatch(ctx, []Subject{
		{Type: SubjectUser, ID: "bob"},
		{Type: SubjectUser, ID: "bob"},
	}, nil, "z1")
	mu.Lock()
	if len(fired) != 2 {
		mu.Unlock()
		t.Fatalf("expected deduplicated batch callbacks, got %v", fired)
	}
	mu.Unlock()

	// Unregistered callbacks stop firing.
	c.UnregisterNamespaceInvalidator("dircache")
	c.InvalidateForWrite(ctx,
		Subject{Type: SubjectUser, ID: "carol"},
		Object{Type: ObjectPath, ID: "/doc"},
		"z1")
	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 2 {
		t.Fatalf("unregistered invalidator must not fire, got %v", fired)
	}
}
