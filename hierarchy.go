package lattice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/tuple"
)

// HierarchyManager derives and batch-writes parent-of edges for path-shaped
// objects. "/a/b/c.txt" implies c.txt→/a/b, /a/b→/a, /a→/. Shared ancestors
// across thousands of input paths collapse to a handful of writes.
type HierarchyManager struct {
	store       tuple.Store
	coordinator *CacheCoordinator
	enabled     bool
	chunkSize   int
	logger      *slog.Logger
}

// NewHierarchyManager creates a hierarchy manager. With enabled false every
// call is a no-op returning zero without touching storage.
func NewHierarchyManager(store tuple.Store, coordinator *CacheCoordinator, enabled bool, chunkSize int, logger *slog.Logger) *HierarchyManager {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HierarchyManager{
		store:       store,
		coordinator: coordinator,
		enabled:     enabled,
		chunkSize:   chunkSize,
		logger:      logger,
	}
}

type parentEdge struct {
	child  string
	parent string
}

// EnsureParentTuplesBatch derives every ancestor edge implied by the paths,
// deduplicates the full edge set before touching storage, skips edges that
// already exist, and inserts the remainder in chunked batch calls. Returns
// the count actually created; re-running with the same paths creates zero.
func (h *HierarchyManager) EnsureParentTuplesBatch(ctx context.Context, paths []string, zoneID string) (int, error) {
	if !h.enabled || len(paths) == 0 {
		return 0, nil
	}
	if zoneID == "" {
		zoneID = DefaultZone
	}

	// Dedup across the whole batch first.
	edgeSet := make(map[parentEdge]struct{})
	var edges []parentEdge
	for _, p := range paths {
		for _, e := range deriveParentEdges(p) {
			if _, dup := edgeSet[e]; dup {
				continue
			}
			edgeSet[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	if len(edges) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	var pending []*tuple.Tuple
	for _, e := range edges {
		exists, err := h.store.HasTuple(ctx, zoneID, ObjectPath, e.child, RelationParent, ObjectPath, e.parent)
		if err != nil {
			return 0, fmt.Errorf("lattice: check parent edge %s -> %s: %w", e.child, e.parent, err)
		}
		if exists {
			continue
		}
		pending = append(pending, &tuple.Tuple{
			ID:          id.NewTupleID(),
			SubjectType: ObjectPath,
			SubjectID:   e.child,
			Relation:    RelationParent,
			ObjectType:  ObjectPath,
			ObjectID:    e.parent,
			ZoneID:      zoneID,
			CreatedAt:   now,
		})
	}
	if len(pending) == 0 {
		return 0, nil
	}

	for start := 0; start < len(pending); start += h.chunkSize {
		end := min(start+h.chunkSize, len(pending))
		if err := h.store.CreateTuples(ctx, pending[start:end]); err != nil {
			return 0, fmt.Errorf("lattice: batch insert parent edges: %w", err)
		}
	}

	if h.coordinator != nil {
		subjects := make([]Subject, 0, len(pending))
		for _, t := range pending {
			subjects = append(subjects, Subject{Type: t.SubjectType, ID: t.SubjectID})
		}
		h.coordinator.InvalidateBatch(ctx, subjects, []string{ObjectPath}, zoneID)
	}

	h.logger.Debug("lattice: hierarchy batch linked",
		slog.Int("paths", len(paths)),
		slog.Int("created", len(pending)),
		slog.String("zone", zoneID))

	return len(pending), nil
}

// deriveParentEdges returns the child→parent chain implied by one path.
// Root paths produce no edges.
func deriveParentEdges(p string) []parentEdge {
	p = path.Clean(p)
	if p == "" || p == "/" || p == "." {
		return nil
	}

	var edges []parentEdge
	for p != "/" && p != "." {
		parent := path.Dir(p)
		edges = append(edges, parentEdge{child: p, parent: parent})
		p = parent
	}
	return edges
}
