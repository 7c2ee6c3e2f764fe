package api

import "time"

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for a permission check.
type CheckRequest struct {
	SubjectType string `json:"subject_type" description:"Subject type (user, agent, group, department)"`
	SubjectID   string `json:"subject_id" description:"Subject identifier"`
	Permission  string `json:"permission" description:"Permission name (owner, editor, viewer, ...)"`
	ObjectType  string `json:"object_type" description:"Object type"`
	ObjectID    string `json:"object_id" description:"Object identifier"`
	ZoneID      string `json:"zone_id,omitempty" description:"Zone (defaults to the request scope's zone)"`
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of permission checks"`
}

// ──────────────────────────────────────────────────
// Expand / list-allowed requests
// ──────────────────────────────────────────────────

// ExpandRequest is the body for a reverse lookup of subjects.
type ExpandRequest struct {
	Permission string `json:"permission" description:"Permission name"`
	ObjectType string `json:"object_type" description:"Object type"`
	ObjectID   string `json:"object_id" description:"Object identifier"`
	ZoneID     string `json:"zone_id,omitempty" description:"Zone"`
}

// ListAllowedRequest is the body for listing resources a subject can reach.
type ListAllowedRequest struct {
	SubjectType  string `json:"subject_type" description:"Subject type"`
	SubjectID    string `json:"subject_id" description:"Subject identifier"`
	Permission   string `json:"permission" description:"Permission name"`
	ResourceType string `json:"resource_type" description:"Resource type to enumerate"`
	ZoneID       string `json:"zone_id,omitempty" description:"Zone"`
}

// ──────────────────────────────────────────────────
// Tuple requests
// ──────────────────────────────────────────────────

// WriteTupleRequest is the body for writing a relationship tuple.
type WriteTupleRequest struct {
	SubjectType   string     `json:"subject_type" description:"Subject type"`
	SubjectID     string     `json:"subject_id" description:"Subject identifier"`
	Relation      string     `json:"relation" description:"Relation name (owner-of, member-of, parent-of, ...)"`
	ObjectType    string     `json:"object_type" description:"Object type"`
	ObjectID      string     `json:"object_id" description:"Object identifier"`
	ZoneID        string     `json:"zone_id,omitempty" description:"Zone to store the tuple in"`
	SubjectZoneID string     `json:"subject_zone_id,omitempty" description:"Zone the subject lives in"`
	ObjectZoneID  string     `json:"object_zone_id,omitempty" description:"Zone the object lives in"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" description:"Optional expiry for temporary grants"`
}

// GetTupleRequest is the path parameter for a tuple lookup or delete.
type GetTupleRequest struct {
	TupleID string `path:"tupleId" description:"Tuple ID"`
}

// ListTuplesRequest holds query parameters for listing tuples.
type ListTuplesRequest struct {
	ZoneID      string `query:"zone_id" description:"Filter by zone"`
	SubjectType string `query:"subject_type" description:"Filter by subject type"`
	SubjectID   string `query:"subject_id" description:"Filter by subject identifier"`
	Relation    string `query:"relation" description:"Filter by relation"`
	ObjectType  string `query:"object_type" description:"Filter by object type"`
	ObjectID    string `query:"object_id" description:"Filter by object identifier"`
	Limit       int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset      int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Hierarchy requests
// ──────────────────────────────────────────────────

// LinkHierarchyRequest is the body for linking paths into the hierarchy.
type LinkHierarchyRequest struct {
	Paths  []string `json:"paths" description:"Paths to link to their ancestors"`
	ZoneID string   `json:"zone_id,omitempty" description:"Zone"`
}
