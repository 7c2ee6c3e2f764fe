// Package resourceid maps (resource_type, resource_id, zone_id) triples to
// dense integer IDs for the bitmap cache. Mappings are created lazily on
// first bitmap build and never reused once assigned, so a bitmap built at a
// given revision stays a valid reference for as long as the revision matches.
package resourceid

import (
	"context"
	"time"

	"github.com/xraph/lattice/id"
)

// Mapping is one (resource_type, resource_id, zone_id) → int assignment.
type Mapping struct {
	ID           id.ResourceID `json:"id" db:"id"`
	IntID        uint32        `json:"int_id" db:"int_id"`
	ResourceType string        `json:"resource_type" db:"resource_type"`
	ResourceID   string        `json:"resource_id" db:"resource_id"`
	ZoneID       string        `json:"zone_id" db:"zone_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// Store defines persistence for the resource int-id mapping. Implementations
// keep a reverse index on int_id so bitmap positions resolve back to
// resource identifiers.
type Store interface {
	// EnsureResourceIntID returns the dense int ID for the triple,
	// assigning the next free one if the triple has never been seen.
	EnsureResourceIntID(ctx context.Context, resourceType, resourceID, zoneID string) (uint32, error)

	// GetResourceIntID returns the int ID if the triple has been assigned.
	GetResourceIntID(ctx context.Context, resourceType, resourceID, zoneID string) (uint32, bool, error)

	// GetResourceByIntID resolves an int ID back to its mapping.
	GetResourceByIntID(ctx context.Context, zoneID string, intID uint32) (*Mapping, error)

	// ListResourceMappings returns every mapping for (zone, resource_type),
	// used when rebuilding a bitmap for that slice of the graph.
	ListResourceMappings(ctx context.Context, zoneID, resourceType string) ([]*Mapping, error)
}
