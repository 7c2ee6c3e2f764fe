package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/lattice"
)

func testKey(zone, subjectID, objectID string) lattice.CacheKey {
	return lattice.CacheKey{
		ZoneID:      zone,
		SubjectType: lattice.SubjectUser,
		SubjectID:   subjectID,
		Permission:  lattice.PermissionViewer,
		ObjectType:  lattice.ObjectPath,
		ObjectID:    objectID,
	}
}

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	key := testKey("z1", "alice", "/doc")

	// Miss
	_, ok := c.Get(ctx, key)
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, key, &lattice.CacheEntry{Allowed: true, Relation: lattice.RelationViewer}, time.Minute)
	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Allowed {
		t.Fatal("expected allowed")
	}
	if got.Relation != lattice.RelationViewer {
		t.Fatalf("expected relation preserved, got %q", got.Relation)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	key := testKey("z1", "alice", "/doc")
	c.Set(ctx, key, &lattice.CacheEntry{Allowed: true}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, key)
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheZeroTTLNotStored(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	key := testKey("z1", "alice", "/doc")
	c.Set(ctx, key, &lattice.CacheEntry{Allowed: true}, 0)

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("zero TTL must not be stored")
	}
}

func TestMemoryCacheInvalidateSubject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, testKey("z1", "alice", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.Set(ctx, testKey("z1", "bob", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.Set(ctx, testKey("z2", "alice", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)

	c.InvalidateSubject(ctx, "z1", lattice.SubjectUser, "alice")

	if _, ok := c.Get(ctx, testKey("z1", "alice", "/doc")); ok {
		t.Fatal("alice in z1 should be invalidated")
	}
	if _, ok := c.Get(ctx, testKey("z1", "bob", "/doc")); !ok {
		t.Fatal("bob should still be cached")
	}
	if _, ok := c.Get(ctx, testKey("z2", "alice", "/doc")); !ok {
		t.Fatal("alice in z2 should still be cached")
	}
}

func TestMemoryCacheInvalidateObject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, testKey("z1", "alice", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.Set(ctx, testKey("z1", "bob", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.Set(ctx, testKey("z1", "alice", "/other"), &lattice.CacheEntry{Allowed: true}, time.Minute)

	c.InvalidateObject(ctx, "z1", lattice.ObjectPath, "/doc")

	if _, ok := c.Get(ctx, testKey("z1", "alice", "/doc")); ok {
		t.Fatal("alice on /doc should be invalidated")
	}
	if _, ok := c.Get(ctx, testKey("z1", "bob", "/doc")); ok {
		t.Fatal("bob on /doc should be invalidated")
	}
	if _, ok := c.Get(ctx, testKey("z1", "alice", "/other")); !ok {
		t.Fatal("alice on /other should still be cached")
	}
}

func TestMemoryCacheInvalidateZone(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, testKey("z1", "alice", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.Set(ctx, testKey("z1", "bob", "/other"), &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.Set(ctx, testKey("z2", "alice", "/doc"), &lattice.CacheEntry{Allowed: true}, time.Minute)

	c.InvalidateZone(ctx, "z1")

	if _, ok := c.Get(ctx, testKey("z1", "alice", "/doc")); ok {
		t.Fatal("z1 entries should be invalidated")
	}
	if _, ok := c.Get(ctx, testKey("z1", "bob", "/other")); ok {
		t.Fatal("z1 entries should be invalidated")
	}
	if _, ok := c.Get(ctx, testKey("z2", "alice", "/doc")); !ok {
		t.Fatal("z2 entries should survive")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		c.Set(ctx, testKey("z1", "alice", string(rune('a'+i))), &lattice.CacheEntry{Allowed: true}, time.Minute)
	}

	if c.Len() > 2 {
		t.Fatalf("expected max 2 entries, got %d", c.Len())
	}
}
