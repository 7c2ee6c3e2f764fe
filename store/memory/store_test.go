package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/store"
	"github.com/xraph/lattice/tuple"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func newTuple(zone, st, sid, rel, ot, oid string) *tuple.Tuple {
	return &tuple.Tuple{
		ID:          id.NewTupleID(),
		ZoneID:      zone,
		SubjectType: st,
		SubjectID:   sid,
		Relation:    rel,
		ObjectType:  ot,
		ObjectID:    oid,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestTupleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	tup := newTuple("z1", "user", "alice", "owner-of", "path", "/workspace")

	if err := s.CreateTuple(ctx, tup); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTuple(ctx, tup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubjectID != "alice" || got.Relation != "owner-of" {
		t.Fatalf("unexpected tuple: %+v", got)
	}

	ok, err := s.HasTuple(ctx, "z1", "user", "alice", "owner-of", "path", "/workspace")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected tuple to exist")
	}

	deleted, err := s.DeleteTuple(ctx, tup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Fatal("expected delete to report a removed row")
	}

	_, err = s.GetTuple(ctx, tup.ID)
	if !errors.Is(err, tuple.ErrNotFound) {
		t.Fatalf("expected ErrTupleNotFound, got %v", err)
	}

	deleted, err = s.DeleteTuple(ctx, tup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Fatal("expected second delete to be a no-op")
	}
}

func TestListTuplesFilterAndPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.CreateTuple(ctx, newTuple("z1", "user", "alice", "viewer-of", "path", "/a"))
	_ = s.CreateTuple(ctx, newTuple("z1", "user", "alice", "viewer-of", "path", "/b"))
	_ = s.CreateTuple(ctx, newTuple("z1", "user", "bob", "viewer-of", "path", "/a"))
	_ = s.CreateTuple(ctx, newTuple("z2", "user", "alice", "viewer-of", "path", "/a"))

	list, err := s.ListTuples(ctx, &tuple.ListFilter{ZoneID: "z1", SubjectID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tuples, got %d", len(list))
	}

	count, err := s.CountTuples(ctx, &tuple.ListFilter{ZoneID: "z1"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	page, err := s.ListTuples(ctx, &tuple.ListFilter{ZoneID: "z1", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 tuple on second page, got %d", len(page))
	}
}

func TestEdgeListing(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.CreateTuple(ctx, newTuple("z1", "user", "alice", "member-of", "group", "devs"))
	_ = s.CreateTuple(ctx, newTuple("z1", "user", "alice", "owner-of", "path", "/home"))
	_ = s.CreateTuple(ctx, newTuple("z1", "group", "devs", "editor-of", "path", "/home"))

	edges, err := s.ListSubjectEdges(ctx, "z1", "user", "alice", []string{"member-of"})
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].ObjectID != "devs" {
		t.Fatalf("unexpected subject edges: %+v", edges)
	}

	// Empty relations means any relation.
	edges, err = s.ListSubjectEdges(ctx, "z1", "user", "alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}

	in, err := s.ListObjectEdges(ctx, "z1", "path", "/home", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(in) != 2 {
		t.Fatalf("expected 2 inbound edges, got %d", len(in))
	}
}

func TestExpiredTuplesInvisible(t *testing.T) {
	ctx := context.Background()
	s := New()

	past := time.Now().Add(-time.Minute)
	tup := newTuple("z1", "user", "alice", "viewer-of", "path", "/a")
	tup.ExpiresAt = &past
	_ = s.CreateTuple(ctx, tup)

	if _, err := s.GetTuple(ctx, tup.ID); !errors.Is(err, tuple.ErrNotFound) {
		t.Fatalf("expected expired tuple to be invisible, got %v", err)
	}

	ok, _ := s.HasTuple(ctx, "z1", "user", "alice", "viewer-of", "path", "/a")
	if ok {
		t.Fatal("expired tuple should not satisfy HasTuple")
	}

	list, _ := s.ListTuples(ctx, &tuple.ListFilter{ZoneID: "z1"})
	if len(list) != 0 {
		t.Fatalf("expected no live tuples, got %d", len(list))
	}

	edges, _ := s.ListSubjectEdges(ctx, "z1", "user", "alice", nil)
	if len(edges) != 0 {
		t.Fatalf("expected no live edges, got %d", len(edges))
	}
}

func TestBulkDeletes(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.CreateTuples(ctx, []*tuple.Tuple{
		newTuple("z1", "user", "alice", "viewer-of", "path", "/a"),
		newTuple("z1", "user", "alice", "viewer-of", "path", "/b"),
		newTuple("z1", "user", "bob", "viewer-of", "path", "/a"),
		newTuple("z2", "user", "alice", "viewer-of", "path", "/a"),
	})

	if err := s.DeleteTuplesBySubject(ctx, "z1", "user", "alice"); err != nil {
		t.Fatal(err)
	}
	count, _ := s.CountTuples(ctx, &tuple.ListFilter{ZoneID: "z1"})
	if count != 1 {
		t.Fatalf("expected 1 tuple left in z1, got %d", count)
	}

	if err := s.DeleteTuplesByObject(ctx, "z1", "path", "/a"); err != nil {
		t.Fatal(err)
	}
	count, _ = s.CountTuples(ctx, &tuple.ListFilter{ZoneID: "z1"})
	if count != 0 {
		t.Fatalf("expected z1 empty, got %d", count)
	}

	if err := s.DeleteTuplesByZone(ctx, "z2"); err != nil {
		t.Fatal(err)
	}
	count, _ = s.CountTuples(ctx, &tuple.ListFilter{})
	if count != 0 {
		t.Fatalf("expected store empty, got %d", count)
	}
}

func TestResourceIntIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.EnsureResourceIntID(ctx, "path", "/a", "z1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.EnsureResourceIntID(ctx, "path", "/b", "z1")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("distinct resources must get distinct int ids")
	}

	// Idempotent per triple.
	again, err := s.EnsureResourceIntID(ctx, "path", "/a", "z1")
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Fatalf("expected stable int id %d, got %d", first, again)
	}

	// Counters are per zone.
	other, err := s.EnsureResourceIntID(ctx, "path", "/a", "z2")
	if err != nil {
		t.Fatal(err)
	}
	if other != 1 {
		t.Fatalf("expected zone counter to start at 1, got %d", other)
	}

	got, ok, err := s.GetResourceIntID(ctx, "path", "/a", "z1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != first {
		t.Fatalf("lookup mismatch: ok=%v got=%d", ok, got)
	}

	m, err := s.GetResourceByIntID(ctx, "z1", first)
	if err != nil {
		t.Fatal(err)
	}
	if m.ResourceID != "/a" {
		t.Fatalf("reverse lookup mismatch: %+v", m)
	}

	mappings, err := s.ListResourceMappings(ctx, "z1", "path")
	if err != nil {
		t.Fatal(err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(mappings))
	}
	if mappings[0].IntID > mappings[1].IntID {
		t.Fatal("mappings must be sorted by int id")
	}
}

func TestMigratePingClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
