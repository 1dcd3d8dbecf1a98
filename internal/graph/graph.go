// Package graph defines the knowledge graph of UAT test cases and the
// entities they exercise, together with the Store interface its
// implementations satisfy.
package graph

import "context"

// Direction specifies the traversal direction for edge queries.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Store is the interface for knowledge graph persistence.
//
// Reads on missing ids return empty results (or ErrNotFound for explicit
// single-node lookups); mutations on missing ids are no-ops. Only
// structurally invalid input, such as an empty case id, is rejected.
type Store interface {
	// AddCase inserts node, merges entities by identity, and creates a
	// "tests" edge from the case to each entity (plus a "belongs-to-role"
	// edge for UserRole entities). Overwrites on identical id: stale
	// forward edges from a previous version are dropped.
	AddCase(ctx context.Context, node *CaseNode, entities []Entity) error

	// GetCase retrieves a single case by id; ErrNotFound when absent.
	// Tombstoned cases are still returned (with Inactive set) so callers
	// can distinguish removed from never-existed.
	GetCase(ctx context.Context, id string) (*CaseNode, error)

	// GetEntity retrieves a single entity node by id; ErrNotFound when absent.
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// EdgesFrom returns edges touching nodeID with the given relation in the
	// given direction. An empty relation matches all relation types.
	EdgesFrom(ctx context.Context, nodeID string, rel Relation, dir Direction) ([]*Edge, error)

	// LinkVariables persists variable nodes and "uses-variable" edges from
	// the case to each named variable. No-op for an unknown case id.
	LinkVariables(ctx context.Context, caseID string, names []string) error

	// RemoveCase tombstones a case: traversals skip it from then on, but the
	// node and its edges are kept so concurrent traversals stay consistent.
	// No-op for an unknown id.
	RemoveCase(ctx context.Context, id string) error

	// Cases returns all non-tombstoned cases.
	Cases(ctx context.Context) ([]*CaseNode, error)

	// Stats returns aggregate statistics about the graph.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources held by the store.
	Close() error
}
