package lattice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/lattice/store/memory"
	"github.com/xraph/lattice/tuple"
)

func newTestBuffer(s tuple.Store) *DeferredPermissionBuffer {
	h := NewHierarchyManager(s, nil, true, 500, nil)
	return NewDeferredPermissionBuffer(s, h, NewZoneValidator(true), nil, 10*time.Millisecond, 1000, nil)
}

func TestBufferFlush(t *testing.T) {
	s := memory.New()
	b := newTestBuffer(s)
	ctx := context.Background()

	b.QueueOwnerGrant(Subject{Type: SubjectUser, ID: "alice"}, Object{Type: ObjectPath, ID: "/f"}, "z1")
	b.QueueGrant(Subject{Type: SubjectUser, ID: "bob"}, RelationViewer, Object{Type: ObjectPath, ID: "/f"}, "z1")
	b.QueueHierarchy("/a/b/c", "z1")

	if b.Len() != 3 {
		t.Fatalf("expected queue depth 3, got %d", b.Len())
	}
	if err := b.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected drained queue, got %d", b.Len())
	}

	exists, err := s.HasTuple(ctx, "z1", SubjectUser, "alice", RelationDirectOwner, ObjectPath, "/f")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected owner grant written")
	}
	exists, err = s.HasTuple(ctx, "z1", SubjectUser, "bob", RelationViewer, ObjectPath, "/f")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected viewer grant written")
	}
	exists, err = s.HasTuple(ctx, "z1", ObjectPath, "/a/b/c", RelationParent, ObjectPath, "/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected hierarchy edge written")
	}
}

func TestBufferFlushEmpty(t *testing.T) {
	b := newTestBuffer(memory.New())
	if err := b.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// flakyStore fails batch inserts until cleared, simulating a transient
// storage outage.
type flakyStore struct {
	*memory.Store
	failing bool
}

func (f *flakyStore) CreateTuples(ctx context.Context, tuples []*tuple.Tuple) error {
	if f.failing {
		return fmt.Errorf("connection refused")
	}
	return f.Store.CreateTuples(ctx, tuples)
}

func TestBufferRequeuesOnFailure(t *testing.T) {
	s := &flakyStore{Store: memory.New(), failing: true}
	b := newTestBuffer(s)
	ctx := context.Background()

	b.QueueGrant(Subject{Type: SubjectUser, ID: "alice"}, RelationViewer, Object{Type: ObjectPath, ID: "/f"}, "z1")

	if err := b.Flush(ctx); err == nil {
		t.Fatal("expected flush error while store is failing")
	}
	if b.Len() != 1 {
		t.Fatalf("failed batch must be re-queued, got depth %d", b.Len())
	}

	// Recovery: the next flush delivers the batch.
	s.failing = false
	if err := b.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	exists, err := s.HasTuple(ctx, "z1", SubjectUser, "alice", RelationViewer, ObjectPath, "/f")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected grant delivered after recovery")
	}
}

func TestBufferBackgroundFlush(t *testing.T) {
	s := memory.New()
	b := newTestBuffer(s)
	ctx := context.Background()

	b.Start()
	b.QueueGrant(Subject{Type: SubjectUser, ID: "alice"}, RelationViewer, Object{Type: ObjectPath, ID: "/f"}, "z1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		exists, err := s.HasTuple(ctx, "z1", SubjectUser, "alice", RelationViewer, ObjectPath, "/f")
		if err != nil {
			t.Fatal(err)
		}
		if exists {
			b.Stop(ctx)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("background flusher never delivered the grant")
}

func TestBufferSizeThresholdWakesFlusher(t *testing.T) {
	s := memory.New()
	h := NewHierarchyManager(s, nil, true, 500, nil)
	// Long interval: only the size threshold can trigger a flush quickly.
	b := NewDeferredPermissionBuffer(s, h, NewZoneValidator(true), nil, time.Minute, 2, nil)
	ctx := context.Background()

	b.Start()
	defer b.Stop(ctx)
	b.QueueGrant(Subject{Type: SubjectUser, ID: "alice"}, RelationViewer, Object{Type: ObjectPath, ID: "/f1"}, "z1")
	b.QueueGrant(Subject{Type: SubjectUser, ID: "alice"}, RelationViewer, Object{Type: ObjectPath, ID: "/f2"}, "z1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		exists, err := s.HasTuple(ctx, "z1", SubjectUser, "alice", RelationViewer, ObjectPath, "/f2")
		if err != nil {
			t.Fatal(err)
		}
		if exists {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("size threshold never triggered a flush")
}

func TestBufferStopDrains(t *testing.T) {
	s := memory.New()
	b := newTestBuffer(s)
	ctx := context.Background()

	b.Start()
	b.QueueGrant(Subject{Type: SubjectUser, ID: "alice"}, RelationEditor, Object{Type: ObjectPath, ID: "/f"}, "z1")
	b.Stop(ctx)

	exists, err := s.HasTuple(ctx, "z1", SubjectUser, "alice", RelationEditor, ObjectPath, "/f")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("Stop must drain queued grants")
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty queue after Stop, got %d", b.Len())
	}
}

func TestEngineQueueAndFlushDeferred(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()

	eng.QueueOwnerGrant(Subject{Type: SubjectUser, ID: "alice"}, Object{Type: ObjectPath, ID: "/f"}, "z1")
	eng.QueueHierarchy("/a/b", "z1")

	if err := eng.FlushDeferred(ctx); err != nil {
		t.Fatal(err)
	}

	exists, err := s.HasTuple(ctx, "z1", SubjectUser, "alice", RelationDirectOwner, ObjectPath, "/f")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected deferred owner grant after flush")
	}
	if !checkAllowed(t, eng, "alice", PermissionOwner, "/f", "z1").Allowed {
		t.Fatal("flushed owner grant must be checkable")
	}
}
