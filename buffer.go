package lattice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/tuple"
)

// DeferredOpKind discriminates the deferred operation sum type.
type DeferredOpKind int

const (
	// OpHierarchy links a path into the parent-of hierarchy.
	OpHierarchy DeferredOpKind = iota

	// OpGrant writes a single grant tuple.
	OpGrant
)

// DeferredOp is one queued write, held by value so the queue owns nothing.
type DeferredOp struct {
	Kind DeferredOpKind

	// Hierarchy fields.
	Path string

	// Grant fields.
	Subject  Subject
	Relation string
	Object   Object

	ZoneID string
}

// DeferredPermissionBuffer decouples latency-sensitive callers from ReBAC
// persistence cost. Enqueues return immediately; a dedicated background
// goroutine drains the queue every FlushInterval, or as soon as it reaches
// MaxBatchSize, into batched hierarchy and grant writes.
//
// Delivery is at-least-once: a failed batch is pushed back for the next
// cycle, so queued grants must be safe to repeat. Duplicate owner tuples
// are harmless because ownership is also recorded synchronously in object
// metadata as the authoritative fast path.
type DeferredPermissionBuffer struct {
	mu    sync.Mutex
	queue []DeferredOp

	hierarchy   *HierarchyManager
	store       tuple.Store
	zones       *ZoneValidator
	coordinator *CacheCoordinator

	flushInterval time.Duration
	maxBatchSize  int

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	logger *slog.Logger
}

// NewDeferredPermissionBuffer creates a buffer. Call Start to launch the
// background flusher and Stop to drain and halt it.
func NewDeferredPermissionBuffer(store tuple.Store, hierarchy *HierarchyManager, zones *ZoneValidator, coordinator *CacheCoordinator, flushInterval time.Duration, maxBatchSize int, logger *slog.Logger) *DeferredPermissionBuffer {
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeferredPermissionBuffer{
		hierarchy:     hierarchy,
		store:         store,
		zones:         zones,
		coordinator:   coordinator,
		flushInterval: flushInterval,
		maxBatchSize:  maxBatchSize,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// Start launches the background flush loop.
func (b *DeferredPermissionBuffer) Start() {
	b.wg.Add(1)
	go b.run()
}

// Stop drains the queue synchronously and halts the background loop.
func (b *DeferredPermissionBuffer) Stop(ctx context.Context) {
	close(b.done)
	b.wg.Wait()
	if err := b.Flush(ctx); err != nil {
		b.logger.Warn("lattice: final buffer flush failed", slog.Any("error", err))
	}
}

// QueueOwnerGrant enqueues a direct-owner grant and returns immediately.
func (b *DeferredPermissionBuffer) QueueOwnerGrant(subject Subject, object Object, zoneID string) {
	b.enqueue(DeferredOp{
		Kind:     OpGrant,
		Subject:  subject,
		Relation: RelationDirectOwner,
		Object:   object,
		ZoneID:   zoneID,
	})
}

// QueueGrant enqueues an arbitrary grant and returns immediately.
func (b *DeferredPermissionBuffer) QueueGrant(subject Subject, relation string, object Object, zoneID string) {
	b.enqueue(DeferredOp{
		Kind:     OpGrant,
		Subject:  subject,
		Relation: relation,
		Object:   object,
		ZoneID:   zoneID,
	})
}

// QueueHierarchy enqueues a hierarchy link and returns immediately.
func (b *DeferredPermissionBuffer) QueueHierarchy(path, zoneID string) {
	b.enqueue(DeferredOp{Kind: OpHierarchy, Path: path, ZoneID: zoneID})
}

// Len returns the current queue depth.
func (b *DeferredPermissionBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *DeferredPermissionBuffer) enqueue(op DeferredOp) {
	b.mu.Lock()
	b.queue = append(b.queue, op)
	full := len(b.queue) >= b.maxBatchSize
	b.mu.Unlock()

	if full {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
}

func (b *DeferredPermissionBuffer) run() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
		case <-b.wake:
		}

		// Background failures are logged and re-queued, never propagated:
		// the enqueue calls already returned.
		if err := b.Flush(context.Background()); err != nil {
			b.logger.Warn("lattice: deferred flush failed, re-queued", slog.Any("error", err))
		}
	}
}

// Flush drains and processes the queue synchronously. Callers that must
// observe their own deferred writes call this first. The drain swaps the
// queue under the lock and processes the copy without holding it, so
// producers never block for the duration of a flush.
func (b *DeferredPermissionBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	drained := b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(drained) == 0 {
		return nil
	}

	if err := b.process(ctx, drained); err != nil {
		// At-least-once: push the whole batch back for the next cycle.
		b.mu.Lock()
		b.queue = append(drained, b.queue...)
		b.mu.Unlock()
		return err
	}
	return nil
}

func (b *DeferredPermissionBuffer) process(ctx context.Context, ops []DeferredOp) error {
	hierarchyByZone := make(map[string][]string)
	var grants []DeferredOp

	for _, op := range ops {
		switch op.Kind {
		case OpHierarchy:
			zone := op.ZoneID
			if zone == "" {
				zone = DefaultZone
			}
			hierarchyByZone[zone] = append(hierarchyByZone[zone], op.Path)
		case OpGrant:
			grants = append(grants, op)
		}
	}

	for zone, paths := range hierarchyByZone {
		if _, err := b.hierarchy.EnsureParentTuplesBatch(ctx, paths, zone); err != nil {
			return err
		}
	}

	if len(grants) == 0 {
		return nil
	}

	now := time.Now().UTC()
	tuples := make([]*tuple.Tuple, 0, len(grants))
	subjectsByZone := make(map[string][]Subject)
	typesByZone := make(map[string][]string)

	for _, g := range grants {
		res, err := b.zones.ValidateWriteZones(g.ZoneID, "", "", g.Relation)
		if err != nil {
			// Cannot happen with empty per-side zones; kept for safety.
			return err
		}
		tuples = append(tuples, &tuple.Tuple{
			ID:          id.NewTupleID(),
			SubjectType: g.Subject.Type,
			SubjectID:   g.Subject.ID,
			Relation:    g.Relation,
			ObjectType:  g.Object.Type,
			ObjectID:    g.Object.ID,
			ZoneID:      res.EffectiveZoneID,
			CreatedAt:   now,
		})
		subjectsByZone[res.EffectiveZoneID] = append(subjectsByZone[res.EffectiveZoneID], g.Subject)
		typesByZone[res.EffectiveZoneID] = append(typesByZone[res.EffectiveZoneID], g.Object.Type)
	}

	if err := b.store.CreateTuples(ctx, tuples); err != nil {
		return err
	}

	if b.coordinator != nil {
		for zone, subjects := range subjectsByZone {
			b.coordinator.InvalidateBatch(ctx, subjects, typesByZone[zone], zone)
		}
	}
	return nil
}
