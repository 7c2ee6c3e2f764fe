package lattice

import (
	"context"
	"testing"

	"github.com/xraph/lattice/store/memory"
	"github.com/xraph/lattice/tuple"
)

func TestDeriveParentEdges(t *testing.T) {
	edges := deriveParentEdges("/a/b/c.txt")
	want := []parentEdge{
		{child: "/a/b/c.txt", parent: "/a/b"},
		{child: "/a/b", parent: "/a"},
		{child: "/a", parent: "/"},
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d: %v", len(want), len(edges), edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Fatalf("edge %d = %v, want %v", i, edges[i], want[i])
		}
	}

	for _, root := range []string{"/", "", "."} {
		if got := deriveParentEdges(root); got != nil {
			t.Fatalf("root path %q should produce no edges, got %v", root, got)
		}
	}

	// Unclean paths normalize before deriving.
	edges = deriveParentEdges("/a//b/")
	if len(edges) != 2 || edges[0].child != "/a/b" {
		t.Fatalf("expected cleaned edges, got %v", edges)
	}
}

func TestEnsureParentTuplesBatch(t *testing.T) {
	s := memory.New()
	h := NewHierarchyManager(s, nil, true, 500, nil)
	ctx := context.Background()

	created, err := h.EnsureParentTuplesBatch(ctx, []string{"/a/b/c.txt"}, "z1")
	if err != nil {
		t.Fatal(err)
	}
	if created != 3 {
		t.Fatalf("expected 3 edges created, got %d", created)
	}

	exists, err := s.HasTuple(ctx, "z1", ObjectPath, "/a/b", RelationParent, ObjectPath, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected /a/b -> /a parent edge")
	}

	// Re-running the same batch creates nothing.
	created, err = h.EnsureParentTuplesBatch(ctx, []string{"/a/b/c.txt"}, "z1")
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Fatalf("expected idempotent re-run, got %d created", created)
	}
}

func TestEnsureParentTuplesBatchDedup(t *testing.T) {
	s := memory.New()
	h := NewHierarchyManager(s, nil, true, 500, nil)

	// Two siblings share every ancestor edge above their own.
	created, err := h.EnsureParentTuplesBatch(context.Background(),
		[]string{"/a/b/one.txt", "/a/b/two.txt"}, "z1")
	if err != nil {
		t.Fatal(err)
	}
	// one.txt->/a/b, two.txt->/a/b, /a/b->/a, /a->/.
	if created != 4 {
		t.Fatalf("expected 4 deduplicated edges, got %d", created)
	}
}

func TestEnsureParentTuplesBatchChunked(t *testing.T) {
	s := memory.New()
	h := NewHierarchyManager(s, nil, true, 2, nil)
	ctx := context.Background()

	paths := []string{"/x/1", "/x/2", "/x/3", "/x/4", "/x/5"}
	created, err := h.EnsureParentTuplesBatch(ctx, paths, "z1")
	if err != nil {
		t.Fatal(err)
	}
	// Five leaf edges plus /x -> /.
	if created != 6 {
		t.Fatalf("expected 6 edges, got %d", created)
	}

	total, err := s.CountTuples(ctx, &tuple.ListFilter{ZoneID: "z1", Relation: RelationParent})
	if err != nil {
		t.Fatal(err)
	}
	if total != 6 {
		t.Fatalf("expected 6 stored edges, got %d", total)
	}
}

func TestHierarchyDisabled(t *testing.T) {
	s := memory.New()
	h := NewHierarchyManager(s, nil, false, 500, nil)

	created, err := h.EnsureParentTuplesBatch(context.Background(), []string{"/a/b"}, "z1")
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Fatalf("disabled manager must create nothing, got %d", created)
	}
	total, err := s.CountTuples(context.Background(), &tuple.ListFilter{ZoneID: "z1"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatal("disabled manager must not touch storage")
	}
}

func TestHierarchyDefaultZone(t *testing.T) {
	s := memory.New()
	h := NewHierarchyManager(s, nil, true, 500, nil)
	ctx := context.Background()

	if _, err := h.EnsureParentTuplesBatch(ctx, []string{"/a/b"}, ""); err != nil {
		t.Fatal(err)
	}
	exists, err := s.HasTuple(ctx, DefaultZone, ObjectPath, "/a/b", RelationParent, ObjectPath, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected edge stored under the default zone")
	}
}
