package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/tuple"
)

// testPlugin implements Plugin + TupleWritten + AfterCheck + HierarchyLinked.
type testPlugin struct {
	tupleWrittenCalled    bool
	afterCheckCalled      bool
	hierarchyLinkedCount  int
	hierarchyLinkedZoneID string
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnTupleWritten(_ context.Context, _ *tuple.Tuple) error {
	t.tupleWrittenCalled = true
	return nil
}

func (t *testPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

func (t *testPlugin) OnHierarchyLinked(_ context.Context, zoneID string, created int) error {
	t.hierarchyLinkedZoneID = zoneID
	t.hierarchyLinkedCount = created
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// brokenPlugin fails every hook it implements.
type brokenPlugin struct{}

func (b *brokenPlugin) Name() string { return "broken" }

func (b *brokenPlugin) OnTupleWritten(context.Context, *tuple.Tuple) error {
	return fmt.Errorf("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch TupleWritten to testPlugin only.
	reg.EmitTupleWritten(ctx, &tuple.Tuple{ID: id.NewTupleID(), CreatedAt: time.Now()})
	if !tp.tupleWrittenCalled {
		t.Fatal("OnTupleWritten was not called")
	}

	// Should dispatch AfterCheck.
	reg.EmitAfterCheck(ctx, nil, nil)
	if !tp.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	// Should dispatch HierarchyLinked with its arguments.
	reg.EmitHierarchyLinked(ctx, "z1", 7)
	if tp.hierarchyLinkedZoneID != "z1" || tp.hierarchyLinkedCount != 7 {
		t.Fatalf("OnHierarchyLinked got (%q, %d)", tp.hierarchyLinkedZoneID, tp.hierarchyLinkedCount)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeCheck(ctx, nil)
	reg.EmitTupleDeleted(ctx, id.NewTupleID())
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(&brokenPlugin{})
	reg.Register(tp)

	// The broken plugin's error is logged; later plugins still run.
	reg.EmitTupleWritten(ctx, &tuple.Tuple{ID: id.NewTupleID()})
	if !tp.tupleWrittenCalled {
		t.Fatal("a failing plugin must not block later plugins")
	}
}
