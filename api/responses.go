package api

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed    bool   `json:"allowed" description:"Whether the request is allowed"`
	Decision   string `json:"decision" description:"Decision code"`
	Relation   string `json:"relation,omitempty" description:"Relation that produced the grant"`
	Inherited  bool   `json:"inherited,omitempty" description:"Whether the grant came through a group or ancestor"`
	EvalTimeNs int64  `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// ExpandResponse lists the subjects holding a permission on an object.
type ExpandResponse struct {
	Subjects []SubjectInfo `json:"subjects" description:"Subjects holding the permission"`
}

// SubjectInfo identifies one subject in an expand result.
type SubjectInfo struct {
	Type string `json:"type" description:"Subject type"`
	ID   string `json:"id" description:"Subject identifier"`
}

// ListAllowedResponse lists the resources a subject can reach.
type ListAllowedResponse struct {
	ResourceIDs []string `json:"resource_ids" description:"Allowed resource identifiers, sorted"`
}

// WriteTupleResponse returns the ID of a written tuple.
type WriteTupleResponse struct {
	TupleID string `json:"tuple_id" description:"ID of the created tuple"`
}

// LinkHierarchyResponse reports how many hierarchy edges were created.
type LinkHierarchyResponse struct {
	Created int `json:"created" description:"Number of parent tuples created"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
