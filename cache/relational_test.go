package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xraph/lattice"
)

// startPostgres spins up a throwaway Postgres and returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lattice"),
		tcpostgres.WithUsername("lattice"),
		tcpostgres.WithPassword("lattice"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestRelationalCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	pool := startPostgres(t)
	c := NewRelational(pool, nil)
	if err := c.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	key := lattice.CacheKey{
		ZoneID:      "z1",
		SubjectType: "user",
		SubjectID:   "alice",
		Permission:  "read",
		ObjectType:  "path",
		ObjectID:    "/workspace",
	}

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, key, &lattice.CacheEntry{Allowed: true, Relation: "owner-of"}, time.Minute)
	entry, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if !entry.Allowed || entry.Relation != "owner-of" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// Upsert replaces the stored decision.
	c.Set(ctx, key, &lattice.CacheEntry{Allowed: false}, time.Minute)
	entry, ok = c.Get(ctx, key)
	if !ok || entry.Allowed {
		t.Fatalf("expected upserted deny, got ok=%v entry=%+v", ok, entry)
	}

	// Expired entries read as misses.
	c.Set(ctx, key, &lattice.CacheEntry{Allowed: true}, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestRelationalCacheInvalidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	pool := startPostgres(t)
	c := NewRelational(pool, nil)
	if err := c.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	alice := lattice.CacheKey{ZoneID: "z1", SubjectType: "user", SubjectID: "alice", Permission: "read", ObjectType: "path", ObjectID: "/a"}
	bob := lattice.CacheKey{ZoneID: "z1", SubjectType: "user", SubjectID: "bob", Permission: "read", ObjectType: "path", ObjectID: "/a"}
	other := lattice.CacheKey{ZoneID: "z2", SubjectType: "user", SubjectID: "alice", Permission: "read", ObjectType: "path", ObjectID: "/a"}

	for _, k := range []lattice.CacheKey{alice, bob, other} {
		c.Set(ctx, k, &lattice.CacheEntry{Allowed: true}, time.Minute)
	}

	// Subject invalidation only evicts that subject's entries in the zone.
	c.InvalidateSubject(ctx, "z1", "user", "alice")
	if _, ok := c.Get(ctx, alice); ok {
		t.Fatal("alice entry should be evicted")
	}
	if _, ok := c.Get(ctx, bob); !ok {
		t.Fatal("bob entry should survive")
	}
	if _, ok := c.Get(ctx, other); !ok {
		t.Fatal("z2 entry should survive")
	}

	// Object invalidation evicts every subject's entries for the object.
	c.Set(ctx, alice, &lattice.CacheEntry{Allowed: true}, time.Minute)
	c.InvalidateObject(ctx, "z1", "path", "/a")
	if _, ok := c.Get(ctx, alice); ok {
		t.Fatal("alice entry should be evicted by object")
	}
	if _, ok := c.Get(ctx, bob); ok {
		t.Fatal("bob entry should be evicted by object")
	}
	if _, ok := c.Get(ctx, other); !ok {
		t.Fatal("z2 entry should survive object invalidation")
	}

	// Zone invalidation clears the zone.
	c.InvalidateZone(ctx, "z2")
	if _, ok := c.Get(ctx, other); ok {
		t.Fatal("z2 entry should be evicted by zone")
	}

	if err := c.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
}
