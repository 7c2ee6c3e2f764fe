package lattice

import (
	"context"
	"log/slog"
	"sync"
)

// NamespaceInvalidator is an externally registered callback, keyed by the
// written subject. It is how caches outside this engine (a directory
// listing cache, a visibility index) stay consistent without polling.
type NamespaceInvalidator func(ctx context.Context, zoneID string, subject Subject)

// CacheCoordinator fans invalidation out to every cache tier on tuple
// writes and deletes. Invalidation for a subject never touches another
// subject's entries.
type CacheCoordinator struct {
	l1    Cache
	l2    Cache
	tiger TigerInvalidator
	mode  InvalidationMode

	mu            sync.RWMutex
	namespaceInvs map[string]NamespaceInvalidator

	logger *slog.Logger
}

// TigerInvalidator is the slice of the bitmap cache the coordinator needs:
// bumping a (zone, resource_type) revision lazily invalidates every bitmap
// for it without enumerating them.
type TigerInvalidator interface {
	BumpRevision(ctx context.Context, zoneID, resourceType string)
}

// NewCacheCoordinator wires the tiers. Any tier may be nil.
func NewCacheCoordinator(l1, l2 Cache, tiger TigerInvalidator, mode InvalidationMode, logger *slog.Logger) *CacheCoordinator {
	if mode == "" {
		mode = InvalidationTargeted
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheCoordinator{
		l1:            l1,
		l2:            l2,
		tiger:         tiger,
		mode:          mode,
		namespaceInvs: make(map[string]NamespaceInvalidator),
		logger:        logger,
	}
}

// RegisterNamespaceInvalidator adds a named external invalidator. A second
// registration under the same name replaces the first.
func (c *CacheCoordinator) RegisterNamespaceInvalidator(name string, fn NamespaceInvalidator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaceInvs[name] = fn
}

// UnregisterNamespaceInvalidator removes a named external invalidator.
func (c *CacheCoordinator) UnregisterNamespaceInvalidator(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.namespaceInvs, name)
}

// InvalidateForWrite is called after every successful tuple write or
// delete. It evicts entries keyed by the written subject or object in both
// directions, bumps bitmap revisions for the affected resource types, and
// invokes external invalidators.
func (c *CacheCoordinator) InvalidateForWrite(ctx context.Context, subject Subject, object Object, zoneID string) {
	if c.mode == InvalidationZoneWide {
		c.invalidateZone(ctx, zoneID)
	} else {
		for _, tier := range []Cache{c.l1, c.l2} {
			if tier == nil {
				continue
			}
			tier.InvalidateSubject(ctx, zoneID, subject.Type, subject.ID)
			tier.InvalidateObject(ctx, zoneID, object.Type, object.ID)
			// A write can also affect checks where the written subject or
			// object appears on the opposite side of a later query.
			tier.InvalidateObject(ctx, zoneID, subject.Type, subject.ID)
			tier.InvalidateSubject(ctx, zoneID, object.Type, object.ID)
		}
	}

	if c.tiger != nil {
		c.tiger.BumpRevision(ctx, zoneID, object.Type)
		if subject.Type != object.Type {
			c.tiger.BumpRevision(ctx, zoneID, subject.Type)
		}
	}

	c.emitNamespaceInvalidators(ctx, zoneID, []Subject{subject})
}

// InvalidateBatch handles bulk writers: one eviction per distinct subject,
// one revision bump per distinct resource type, never once per tuple, so a
// thousand-file hierarchy link does not become an invalidation storm.
func (c *CacheCoordinator) InvalidateBatch(ctx context.Context, subjects []Subject, resourceTypes []string, zoneID string) {
	if c.mode == InvalidationZoneWide {
		c.invalidateZone(ctx, zoneID)
	} else {
		distinct := make(map[string]Subject, len(subjects))
		for _, s := range subjects {
			distinct[visitKey(s.Type, s.ID)] = s
		}
		for _, s := range distinct {
			for _, tier := range []Cache{c.l1, c.l2} {
				if tier == nil {
					continue
				}
				tier.InvalidateSubject(ctx, zoneID, s.Type, s.ID)
				tier.InvalidateObject(ctx, zoneID, s.Type, s.ID)
			}
		}
	}

	if c.tiger != nil {
		seen := make(map[string]struct{}, len(resourceTypes))
		for _, rt := range resourceTypes {
			if _, dup := seen[rt]; dup {
				continue
			}
			seen[rt] = struct{}{}
			c.tiger.BumpRevision(ctx, zoneID, rt)
		}
	}

	c.emitNamespaceInvalidators(ctx, zoneID, subjects)
}

func (c *CacheCoordinator) invalidateZone(ctx context.Context, zoneID string) {
	for _, tier := range []Cache{c.l1, c.l2} {
		if tier != nil {
			tier.InvalidateZone(ctx, zoneID)
		}
	}
}

func (c *CacheCoordinator) emitNamespaceInvalidators(ctx context.Context, zoneID string, subjects []Subject) {
	c.mu.RLock()
	invs := make([]NamespaceInvalidator, 0, len(c.namespaceInvs))
	for _, fn := range c.namespaceInvs {
		invs = append(invs, fn)
	}
	c.mu.RUnlock()

	seen := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		if _, dup := seen[visitKey(s.Type, s.ID)]; dup {
			continue
		}
		seen[visitKey(s.Type, s.ID)] = struct{}{}
		for _, fn := range invs {
			fn(ctx, zoneID, s)
		}
	}
}
