package lattice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/plugin"
	"github.com/xraph/lattice/store"
	"github.com/xraph/lattice/tiger"
	"github.com/xraph/lattice/tuple"
)

// Engine is the central ReBAC manager. It composes the tuple store, graph
// checker, cache tiers, invalidation coordinator, zone validator, hierarchy
// manager, and deferred write buffer behind check/expand/write/delete.
type Engine struct {
	store   store.Store
	checker GraphChecker

	l1    Cache
	l2    Cache
	tiger *tiger.Cache

	coordinator *CacheCoordinator
	zones       *ZoneValidator
	hierarchy   *HierarchyManager
	buffer      *DeferredPermissionBuffer

	ownerResolver OwnerResolver
	plugins       *plugin.Registry
	logger        *slog.Logger
	config        Config
}

// NewEngine creates a new Lattice engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("lattice: store is required")
	}

	if e.checker == nil {
		e.checker = DefaultGraphChecker(CheckerLimits{
			MaxDepth:         e.config.MaxGraphDepth,
			ExpandMaxResults: e.config.ExpandMaxResults,
			ExpandMaxVisited: e.config.ExpandMaxVisited,
		})
	}
	if e.tiger == nil {
		e.tiger = tiger.New(tiger.NewMemoryRevisions(), tiger.WithLogger(e.logger))
	}
	if !e.config.l1Enabled() {
		e.l1 = nil
	}

	e.zones = NewZoneValidator(e.config.zonesEnforced())
	e.coordinator = NewCacheCoordinator(e.l1, e.l2, e.tiger, e.config.InvalidationMode, e.logger)
	e.hierarchy = NewHierarchyManager(e.store, e.coordinator, e.config.hierarchyEnabled(), e.config.HierarchyChunkSize, e.logger)
	e.buffer = NewDeferredPermissionBuffer(e.store, e.hierarchy, e.zones, e.coordinator,
		e.config.FlushInterval, e.config.MaxBatchSize, e.logger)

	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Zones returns the zone validator.
func (e *Engine) Zones() *ZoneValidator { return e.zones }

// Start launches the deferred buffer's background flusher.
func (e *Engine) Start(_ context.Context) error {
	e.buffer.Start()
	return nil
}

// Stop drains the deferred buffer and halts background work.
func (e *Engine) Stop(ctx context.Context) error {
	e.buffer.Stop(ctx)
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Check / Expand
// ──────────────────────────────────────────────────

// Check answers whether the subject holds the permission on the object.
// This is the hot path: owner fast path, then L1, then L2, then graph,
// populating caches on the way back out. Any backend failure fails closed:
// the result is a deny and the error is returned for logging, never an
// allow.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := time.Now()

	if err := validateCheck(req); err != nil {
		return nil, err
	}
	zone := resolveZone(ctx, req.ZoneID)

	// BeforeCheck is the audit surface: it fires for every check, cache-served
	// or not.
	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, req)
	}

	// 1. Owner fast path: ownership lives in object metadata; skip the
	// graph entirely for the common case.
	if e.ownerResolver != nil {
		if ownerID, ok := e.ownerResolver(ctx, req.Object); ok && ownerID == req.Subject.ID {
			return &CheckResult{
				Allowed:    true,
				Decision:   DecisionAllow,
				Relation:   RelationDirectOwner,
				EvalTimeNs: time.Since(start).Nanoseconds(),
			}, nil
		}
	}

	key := CacheKey{
		ZoneID:      zone,
		SubjectType: req.Subject.Type,
		SubjectID:   req.Subject.ID,
		Permission:  req.Permission,
		ObjectType:  req.Object.Type,
		ObjectID:    req.Object.ID,
	}

	// 2. L1 hit?
	if e.l1 != nil {
		if entry, ok := e.l1.Get(ctx, key); ok {
			return resultFromEntry(entry, start), nil
		}
	}

	// 3. L2 hit? Populate L1 on the way back.
	if e.l2 != nil {
		cctx, cancel := e.cacheContext(ctx)
		entry, ok := e.l2.Get(cctx, key)
		cancel()
		if ok {
			result := resultFromEntry(entry, start)
			if e.l1 != nil {
				e.l1.Set(ctx, key, entry, e.config.ttlFor(result))
			}
			return result, nil
		}
	}

	// 4. Graph walk.
	walkReq := *req
	walkReq.ZoneID = zone
	result, err := e.checker.Check(ctx, e.store, &walkReq)
	if err != nil && !errors.Is(err, ErrGraphDepthExceeded) {
		// Fail closed: a storage failure is a deny, never an allow.
		e.logger.Warn("lattice: check failed closed",
			slog.String("subject", req.Subject.ID),
			slog.String("object", req.Object.ID),
			slog.String("zone", zone),
			slog.Any("error", err))
		return &CheckResult{
				Decision:   DecisionDenyBackend,
				EvalTimeNs: time.Since(start).Nanoseconds(),
			}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	// 5. Populate caches.
	entry := &CacheEntry{Allowed: result.Allowed, Relation: result.Relation, Inherited: result.Inherited}
	ttl := e.config.ttlFor(result)
	if e.l2 != nil {
		cctx, cancel := e.cacheContext(ctx)
		e.l2.Set(cctx, key, entry, ttl)
		cancel()
	}
	if e.l1 != nil {
		e.l1.Set(ctx, key, entry, ttl)
	}

	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, result)
	}

	return result, nil
}

// Enforce returns an error if the permission check is denied.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	result, err := e.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("lattice check: %w", err)
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %s", ErrAccessDenied, result.Decision)
	}
	return nil
}

// CanI is a shorthand for a simple permission check.
func (e *Engine) CanI(ctx context.Context, subjectType, subjectID, permission, objectType, objectID string) (bool, error) {
	result, err := e.Check(ctx, &CheckRequest{
		Subject:    Subject{Type: subjectType, ID: subjectID},
		Permission: permission,
		Object:     Object{Type: objectType, ID: objectID},
	})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// Expand returns every subject holding the permission on the object,
// bounded by the configured result and visit caps.
func (e *Engine) Expand(ctx context.Context, req *ExpandRequest) ([]Subject, error) {
	if req.Permission == "" || req.Object.Type == "" || req.Object.ID == "" {
		return nil, fmt.Errorf("%w: permission and object are required", ErrInvalidRequest)
	}
	expReq := *req
	expReq.ZoneID = resolveZone(ctx, req.ZoneID)
	return e.checker.Expand(ctx, e.store, &expReq)
}

// ──────────────────────────────────────────────────
// Write / Delete / List
// ──────────────────────────────────────────────────

// WriteTuple validates zone placement, persists the tuple, and invalidates
// every cache tier before returning, so a subsequent Check on this
// instance reflects the write.
func (e *Engine) WriteTuple(ctx context.Context, req *WriteRequest) (id.TupleID, error) {
	if err := validateWrite(req); err != nil {
		return id.Nil, err
	}

	zone := req.ZoneID
	if zone == "" {
		zone = resolveZone(ctx, "")
	}
	res, err := e.zones.ValidateWriteZones(zone, req.SubjectZoneID, req.ObjectZoneID, req.Relation)
	if err != nil {
		return id.Nil, err
	}

	t := &tuple.Tuple{
		ID:          id.NewTupleID(),
		SubjectType: req.Subject.Type,
		SubjectID:   req.Subject.ID,
		Relation:    req.Relation,
		ObjectType:  req.Object.Type,
		ObjectID:    req.Object.ID,
		ZoneID:      res.EffectiveZoneID,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   req.ExpiresAt,
	}
	if err := e.store.CreateTuple(ctx, t); err != nil {
		return id.Nil, fmt.Errorf("lattice: write tuple: %w", err)
	}

	if res.CrossZone {
		e.logger.Info("lattice: cross-zone share written",
			slog.String("relation", req.Relation),
			slog.String("subject_zone", res.SubjectZone),
			slog.String("object_zone", res.ObjectZone))
	}

	e.coordinator.InvalidateForWrite(ctx, req.Subject, req.Object, res.EffectiveZoneID)

	if e.plugins != nil {
		e.plugins.EmitTupleWritten(ctx, t)
	}
	return t.ID, nil
}

// DeleteTuple removes a tuple by ID and invalidates by the deleted tuple's
// subject and object. Returns ErrTupleNotFound for a missing ID.
func (e *Engine) DeleteTuple(ctx context.Context, tupleID id.TupleID) (bool, error) {
	t, err := e.store.GetTuple(ctx, tupleID)
	if err != nil {
		return false, err
	}

	deleted, err := e.store.DeleteTuple(ctx, tupleID)
	if err != nil {
		return false, fmt.Errorf("lattice: delete tuple: %w", err)
	}
	if !deleted {
		return false, nil
	}

	e.coordinator.InvalidateForWrite(ctx,
		Subject{Type: t.SubjectType, ID: t.SubjectID},
		Object{Type: t.ObjectType, ID: t.ObjectID},
		t.ZoneID)

	if e.plugins != nil {
		e.plugins.EmitTupleDeleted(ctx, tupleID)
	}
	return true, nil
}

// ListTuples returns tuples matching the filter. Expired tuples are
// filtered by the store.
func (e *Engine) ListTuples(ctx context.Context, filter *tuple.ListFilter) ([]*tuple.Tuple, error) {
	if filter == nil {
		filter = &tuple.ListFilter{}
	}
	return e.store.ListTuples(ctx, filter)
}

// ──────────────────────────────────────────────────
// Tiger cache listing
// ──────────────────────────────────────────────────

// ListAllowed returns the IDs of every resource of the given type the
// subject may reach with the permission, served from the bitmap cache when
// a revision-valid bitmap exists and rebuilt otherwise.
func (e *Engine) ListAllowed(ctx context.Context, subject Subject, permission, resourceType, zoneID string) ([]string, error) {
	zone := resolveZone(ctx, zoneID)
	key := tiger.Key{
		ZoneID:       zone,
		SubjectType:  subject.Type,
		SubjectID:    subject.ID,
		Permission:   permission,
		ResourceType: resourceType,
	}

	if bm, ok := e.tiger.Lookup(ctx, key); ok {
		return e.resolveBitmap(ctx, zone, resourceType, bm)
	}

	// Rebuild: enumerate candidate objects, run the graph per candidate,
	// pin the bitmap to the revision observed before the scan.
	revision := e.tiger.Revision(ctx, zone, resourceType)

	// Candidates appear on either side of the graph: grant targets on the
	// object side, and leaf resources that exist only as the child end of a
	// parent-of edge.
	objSide, err := e.store.ListTuples(ctx, &tuple.ListFilter{ZoneID: zone, ObjectType: resourceType})
	if err != nil {
		return nil, fmt.Errorf("lattice: list candidates: %w", err)
	}
	childSide, err := e.store.ListTuples(ctx, &tuple.ListFilter{ZoneID: zone, SubjectType: resourceType, Relation: RelationParent})
	if err != nil {
		return nil, fmt.Errorf("lattice: list candidates: %w", err)
	}

	seen := make(map[string]struct{}, len(objSide)+len(childSide))
	candidates := make([]string, 0, len(objSide)+len(childSide))
	for _, t := range objSide {
		if _, dup := seen[t.ObjectID]; !dup {
			seen[t.ObjectID] = struct{}{}
			candidates = append(candidates, t.ObjectID)
		}
	}
	for _, t := range childSide {
		if _, dup := seen[t.SubjectID]; !dup {
			seen[t.SubjectID] = struct{}{}
			candidates = append(candidates, t.SubjectID)
		}
	}

	bm := roaring.New()
	var allowed []string
	for _, objectID := range candidates {
		result, err := e.checker.Check(ctx, e.store, &CheckRequest{
			Subject:    subject,
			Permission: permission,
			Object:     Object{Type: resourceType, ID: objectID},
			ZoneID:     zone,
		})
		if err != nil && !errors.Is(err, ErrGraphDepthExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		if !result.Allowed {
			continue
		}

		intID, err := e.store.EnsureResourceIntID(ctx, resourceType, objectID, zone)
		if err != nil {
			return nil, fmt.Errorf("lattice: assign resource int id: %w", err)
		}
		bm.Add(intID)
		allowed = append(allowed, objectID)
	}

	e.tiger.Store(ctx, key, bm, revision)
	sort.Strings(allowed)
	return allowed, nil
}

// resolveBitmap maps bitmap positions back to resource identifiers.
func (e *Engine) resolveBitmap(ctx context.Context, zone, resourceType string, bm *roaring.Bitmap) ([]string, error) {
	mappings, err := e.store.ListResourceMappings(ctx, zone, resourceType)
	if err != nil {
		return nil, fmt.Errorf("lattice: list resource mappings: %w", err)
	}
	byInt := make(map[uint32]string, len(mappings))
	for _, m := range mappings {
		byInt[m.IntID] = m.ResourceID
	}

	result := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if rid, ok := byInt[it.Next()]; ok {
			result = append(result, rid)
		}
	}
	sort.Strings(result)
	return result, nil
}

// ──────────────────────────────────────────────────
// Hierarchy and deferred writes
// ──────────────────────────────────────────────────

// EnsureParentTuplesBatch links the given paths into the parent hierarchy.
func (e *Engine) EnsureParentTuplesBatch(ctx context.Context, paths []string, zoneID string) (int, error) {
	created, err := e.hierarchy.EnsureParentTuplesBatch(ctx, paths, resolveZone(ctx, zoneID))
	if err != nil {
		return 0, err
	}
	if created > 0 && e.plugins != nil {
		e.plugins.EmitHierarchyLinked(ctx, resolveZone(ctx, zoneID), created)
	}
	return created, nil
}

// QueueOwnerGrant enqueues an owner grant on the deferred buffer.
func (e *Engine) QueueOwnerGrant(subject Subject, object Object, zoneID string) {
	e.buffer.QueueOwnerGrant(subject, object, zoneID)
}

// QueueHierarchy enqueues a hierarchy link on the deferred buffer.
func (e *Engine) QueueHierarchy(path, zoneID string) {
	e.buffer.QueueHierarchy(path, zoneID)
}

// FlushDeferred drains the deferred buffer synchronously. Callers that
// must observe their own deferred writes call this first.
func (e *Engine) FlushDeferred(ctx context.Context) error {
	return e.buffer.Flush(ctx)
}

// ──────────────────────────────────────────────────
// Namespace invalidators
// ──────────────────────────────────────────────────

// RegisterNamespaceInvalidator attaches an external invalidation callback
// fired on every write, keyed by the written subject.
func (e *Engine) RegisterNamespaceInvalidator(name string, fn NamespaceInvalidator) {
	e.coordinator.RegisterNamespaceInvalidator(name, fn)
}

// UnregisterNamespaceInvalidator removes a named callback.
func (e *Engine) UnregisterNamespaceInvalidator(name string) {
	e.coordinator.UnregisterNamespaceInvalidator(name)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.CacheOpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.CacheOpTimeout)
}

func resultFromEntry(entry *CacheEntry, start time.Time) *CheckResult {
	decision := DecisionDenyNoRelation
	if entry.Allowed {
		decision = DecisionAllow
	}
	return &CheckResult{
		Allowed:    entry.Allowed,
		Decision:   decision,
		Relation:   entry.Relation,
		Inherited:  entry.Inherited,
		EvalTimeNs: time.Since(start).Nanoseconds(),
	}
}

func validateCheck(req *CheckRequest) error {
	if req.Subject.Type == "" || req.Subject.ID == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	if req.Permission == "" {
		return fmt.Errorf("%w: permission is required", ErrInvalidRequest)
	}
	if req.Object.Type == "" || req.Object.ID == "" {
		return fmt.Errorf("%w: object is required", ErrInvalidRequest)
	}
	return nil
}

func validateWrite(req *WriteRequest) error {
	if req.Subject.Type == "" || req.Subject.ID == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	if req.Relation == "" {
		return fmt.Errorf("%w: relation is required", ErrInvalidRequest)
	}
	if req.Object.Type == "" || req.Object.ID == "" {
		return fmt.Errorf("%w: object is required", ErrInvalidRequest)
	}
	return nil
}
