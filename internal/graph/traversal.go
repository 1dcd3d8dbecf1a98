package graph

import (
	"context"
	"errors"
	"sort"
)

// Neighbors performs a bounded breadth-first traversal from nodeID, following
// edges with the given relation (empty matches all) in both directions, up to
// depth hops. The result is the sorted set of reachable node ids, excluding
// nodeID itself.
//
// The traversal is cycle-safe via a visited set. Tombstoned cases and
// dangling edges (an endpoint no longer present) are skipped lazily. A
// missing or tombstoned start node yields an empty result, not an error.
func Neighbors(ctx context.Context, s Store, nodeID string, rel Relation, depth int) ([]string, error) {
	if nodeID == "" || depth <= 0 {
		return nil, nil
	}
	ok, err := alive(ctx, s, nodeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	visited := map[string]struct{}{nodeID: {}}
	frontier := []string{nodeID}
	var result []string

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			edges, err := s.EdgesFrom(ctx, id, rel, Both)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				other := e.TargetID
				if other == id {
					other = e.SourceID
				}
				if _, seen := visited[other]; seen {
					continue
				}
				visited[other] = struct{}{}
				ok, err := alive(ctx, s, other)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue // dangling edge or tombstone, pruned lazily
				}
				result = append(result, other)
				next = append(next, other)
			}
		}
		frontier = next
	}

	sort.Strings(result)
	return result, nil
}

// alive reports whether id refers to a live node: a non-tombstoned case or
// any entity.
func alive(ctx context.Context, s Store, id string) (bool, error) {
	c, err := s.GetCase(ctx, id)
	if err == nil {
		return !c.Inactive, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := s.GetEntity(ctx, id); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return false, nil
}
