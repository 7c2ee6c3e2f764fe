package lattice

import (
	"context"
	"fmt"
	"sort"

	"github.com/xraph/lattice/tuple"
)

// GraphChecker traverses the tuple graph for permission checks and reverse
// expand queries.
type GraphChecker interface {
	// Check reports whether the subject holds the permission on the object.
	// Returns ErrGraphDepthExceeded when the traversal budget ran out
	// before a path was found; the engine absorbs that as a deny.
	Check(ctx context.Context, store tuple.Store, req *CheckRequest) (*CheckResult, error)

	// Expand returns every subject holding the permission on the object,
	// deduplicated, bounded by result and visit caps.
	Expand(ctx context.Context, store tuple.Store, req *ExpandRequest) ([]Subject, error)
}

// CheckerLimits bounds graph traversal.
type CheckerLimits struct {
	MaxDepth         int
	ExpandMaxResults int
	ExpandMaxVisited int
}

// DefaultGraphChecker returns the built-in BFS checker.
func DefaultGraphChecker(limits CheckerLimits) GraphChecker {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = 10
	}
	if limits.ExpandMaxResults <= 0 {
		limits.ExpandMaxResults = 1000
	}
	if limits.ExpandMaxVisited <= 0 {
		limits.ExpandMaxVisited = 10000
	}
	return &bfsChecker{limits: limits}
}

type bfsChecker struct {
	limits CheckerLimits
}

type graphNode struct {
	nodeType string
	nodeID   string
	depth    int
}

// target is one node a frontier subject may hold the permission on: the
// checked object itself or one of its ancestors.
type target struct {
	objectType string
	objectID   string
	inherited  bool
}

func visitKey(nodeType, nodeID string) string {
	return nodeType + ":" + nodeID
}

// sortTuples fixes traversal order with a lexical tie-break on tuple ID so
// repeated checks against an unchanged graph are reproducible.
func sortTuples(tuples []*tuple.Tuple) {
	sort.Slice(tuples, func(i, j int) bool {
		return tuples[i].ID.String() < tuples[j].ID.String()
	})
}

func (c *bfsChecker) Check(ctx context.Context, store tuple.Store, req *CheckRequest) (*CheckResult, error) {
	acceptable := AcceptableRelations(req.Permission)
	acceptSet := make(map[string]struct{}, len(acceptable))
	for _, r := range acceptable {
		acceptSet[r] = struct{}{}
	}

	targets, err := c.collectTargets(ctx, store, req.ZoneID, req.Object)
	if err != nil {
		return nil, err
	}
	targetIdx := make(map[string]target, len(targets))
	for _, tg := range targets {
		targetIdx[visitKey(tg.objectType, tg.objectID)] = tg
	}

	// Edges followed from each frontier subject: grants plus group hops.
	followed := make([]string, 0, len(acceptable)+len(groupRelations))
	followed = append(followed, acceptable...)
	followed = append(followed, groupRelations...)

	queue := []graphNode{{nodeType: req.Subject.Type, nodeID: req.Subject.ID}}
	visited := make(map[string]struct{})
	depthExceeded := false

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		key := visitKey(node.nodeType, node.nodeID)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		edges, err := store.ListSubjectEdges(ctx, req.ZoneID, node.nodeType, node.nodeID, followed)
		if err != nil {
			return nil, fmt.Errorf("list edges for %s: %w", key, err)
		}
		sortTuples(edges)

		for _, t := range edges {
			if _, grant := acceptSet[t.Relation]; grant {
				tg, hit := targetIdx[visitKey(t.ObjectType, t.ObjectID)]
				if hit {
					return &CheckResult{
						Allowed:   true,
						Decision:  DecisionAllow,
						Relation:  t.Relation,
						Inherited: tg.inherited || node.depth > 0,
					}, nil
				}
				continue
			}

			// Group hop: the subject inherits whatever the group holds.
			if node.depth+1 > c.limits.MaxDepth {
				depthExceeded = true
				continue
			}
			queue = append(queue, graphNode{
				nodeType: t.ObjectType,
				nodeID:   t.ObjectID,
				depth:    node.depth + 1,
			})
		}
	}

	if depthExceeded {
		return &CheckResult{Decision: DecisionDenyNoRelation}, ErrGraphDepthExceeded
	}
	return &CheckResult{Decision: DecisionDenyNoRelation}, nil
}

// collectTargets walks parent-of edges upward from the object so a grant on
// any ancestor satisfies the check. An object may carry several parents, so
// the walk is a worklist over every parent edge, bounded by MaxDepth and a
// visited set.
func (c *bfsChecker) collectTargets(ctx context.Context, store tuple.Store, zoneID string, obj Object) ([]target, error) {
	targets := []target{{objectType: obj.Type, objectID: obj.ID}}
	visited := map[string]struct{}{visitKey(obj.Type, obj.ID): {}}

	queue := []graphNode{{nodeType: obj.Type, nodeID: obj.ID}}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if node.depth >= c.limits.MaxDepth {
			continue
		}
		parents, err := store.ListSubjectEdges(ctx, zoneID, node.nodeType, node.nodeID, []string{RelationParent})
		if err != nil {
			return nil, fmt.Errorf("list parents for %s:%s: %w", node.nodeType, node.nodeID, err)
		}
		sortTuples(parents)

		for _, p := range parents {
			key := visitKey(p.ObjectType, p.ObjectID)
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			targets = append(targets, target{objectType: p.ObjectType, objectID: p.ObjectID, inherited: true})
			queue = append(queue, graphNode{
				nodeType: p.ObjectType,
				nodeID:   p.ObjectID,
				depth:    node.depth + 1,
			})
		}
	}
	return targets, nil
}

func (c *bfsChecker) Expand(ctx context.Context, store tuple.Store, req *ExpandRequest) ([]Subject, error) {
	acceptable := AcceptableRelations(req.Permission)

	targets, err := c.collectTargets(ctx, store, req.ZoneID, req.Object)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	visited := make(map[string]struct{})
	var result []Subject
	visitedCount := 0

	// Holders on the object or any ancestor, then group membership fans
	// each holder out to its members.
	var groupQueue []graphNode

	add := func(subjectType, subjectID string) bool {
		key := visitKey(subjectType, subjectID)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		result = append(result, Subject{Type: subjectType, ID: subjectID})
		return len(result) < c.limits.ExpandMaxResults
	}

	for _, tg := range targets {
		grants, err := store.ListObjectEdges(ctx, req.ZoneID, tg.objectType, tg.objectID, acceptable)
		if err != nil {
			return nil, fmt.Errorf("list grants for %s:%s: %w", tg.objectType, tg.objectID, err)
		}
		sortTuples(grants)
		for _, t := range grants {
			if !add(t.SubjectType, t.SubjectID) {
				return result, nil
			}
			groupQueue = append(groupQueue, graphNode{nodeType: t.SubjectType, nodeID: t.SubjectID})
		}
	}

	for len(groupQueue) > 0 {
		node := groupQueue[0]
		groupQueue = groupQueue[1:]

		key := visitKey(node.nodeType, node.nodeID)
		if _, dup := visited[key]; dup {
			continue
		}
		visited[key] = struct{}{}

		visitedCount++
		if visitedCount > c.limits.ExpandMaxVisited || node.depth >= c.limits.MaxDepth {
			continue
		}

		members, err := store.ListObjectEdges(ctx, req.ZoneID, node.nodeType, node.nodeID, groupRelations)
		if err != nil {
			return nil, fmt.Errorf("list members for %s: %w", key, err)
		}
		sortTuples(members)
		for _, t := range members {
			if !add(t.SubjectType, t.SubjectID) {
				return result, nil
			}
			groupQueue = append(groupQueue, graphNode{
				nodeType: t.SubjectType,
				nodeID:   t.SubjectID,
				depth:    node.depth + 1,
			})
		}
	}

	return result, nil
}
