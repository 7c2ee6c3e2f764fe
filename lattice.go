// Package lattice provides a relationship-based access control (ReBAC)
// engine for Go.
//
// Lattice answers "can subject S exercise permission P on object O in zone
// Z?" by breadth-first traversal over a directed graph of relationship
// tuples, and keeps that traversal fast with a layered cache: an in-process
// L1, a bitmap-indexed Tiger cache for set queries, and a distributed L2
// with a relational fallback. Writes fan out invalidation to every tier so
// caches stay coherent across processes. Zones are the tenant isolation
// boundary and are enforced on every write.
//
//	eng, err := lattice.NewEngine(
//	    lattice.WithStore(memStore),
//	)
//	result, err := eng.Check(ctx, &lattice.CheckRequest{
//	    Subject:    lattice.Subject{Type: lattice.SubjectUser, ID: "alice"},
//	    Permission: lattice.PermissionViewer,
//	    Object:     lattice.Object{Type: "path", ID: "/workspace/readme.md"},
//	    ZoneID:     "zone1",
//	})
package lattice

import (
	"context"
	"time"
)

// Subject identifies the acting principal of a check or a tuple's
// subject side: a user, agent, group, department, and so on.
type Subject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Object identifies the target node: a file, folder, group, and so on.
// Nodes are untyped beyond this pair; the same identifier can appear on
// both sides of different tuples (groups, folders).
type Object struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Common subject and object type names. The graph does not restrict node
// types; these are the conventional ones used by the filesystem callers.
const (
	SubjectUser       = "user"
	SubjectAgent      = "agent"
	SubjectGroup      = "group"
	SubjectDepartment = "department"

	ObjectPath  = "path"
	ObjectGroup = "group"
)

// CheckRequest is the input to a permission check.
type CheckRequest struct {
	Subject    Subject `json:"subject"`
	Permission string  `json:"permission"`
	Object     Object  `json:"object"`
	ZoneID     string  `json:"zone_id,omitempty"`
}

// CheckResult is the outcome of a permission check.
type CheckResult struct {
	Allowed  bool     `json:"allowed"`
	Decision Decision `json:"decision"`

	// Relation is the relation that produced the grant, when allowed.
	// It selects the cache TTL tier.
	Relation string `json:"relation,omitempty"`

	// Inherited marks grants found through a group hop or an ancestor of
	// the object rather than a direct tuple. Inherited grants re-validate
	// on the shortest positive TTL tier.
	Inherited bool `json:"inherited,omitempty"`

	EvalTimeNs int64 `json:"eval_time_ns"`
}

// Decision is the check outcome. Callers see only the Allowed boolean;
// the decision exists for logs and hooks and deliberately does not
// distinguish "explicitly denied" from "no path found" on the wire.
type Decision string

const (
	// DecisionAllow means the request is permitted.
	DecisionAllow Decision = "allow"

	// DecisionDenyNoRelation means no relation path reached the object.
	DecisionDenyNoRelation Decision = "deny_no_relation"

	// DecisionDenyBackend means a storage failure forced a fail-closed deny.
	DecisionDenyBackend Decision = "deny_backend"
)

// ExpandRequest is the input to a reverse lookup: all subjects holding
// the permission on the object.
type ExpandRequest struct {
	Permission string `json:"permission"`
	Object     Object `json:"object"`
	ZoneID     string `json:"zone_id,omitempty"`
}

// WriteRequest is the input to a tuple write. ZoneID, SubjectZoneID and
// ObjectZoneID may be empty; the zone validator resolves defaults and
// decides the effective zone the tuple is stored under.
type WriteRequest struct {
	Subject       Subject    `json:"subject"`
	Relation      string     `json:"relation"`
	Object        Object     `json:"object"`
	ZoneID        string     `json:"zone_id,omitempty"`
	SubjectZoneID string     `json:"subject_zone_id,omitempty"`
	ObjectZoneID  string     `json:"object_zone_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// OwnerResolver is the fast-path hook exposed to the virtual filesystem
// layer: when it reports the checking subject as the object's owner, the
// engine skips graph traversal entirely. Ownership lives authoritatively
// in object metadata; ReBAC owner tuples are a sharing/audit projection.
type OwnerResolver func(ctx context.Context, object Object) (ownerID string, ok bool)
