// Package embedded provides a BadgerDB-backed implementation of graph.Store,
// giving the knowledge graph durability across process restarts.
package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/casegraph/casegraph/internal/graph"
)

// Key prefixes for the BadgerDB key scheme.
const (
	prefixCase           = "c:"
	prefixEntity         = "ent:"
	prefixEdge           = "e:"
	prefixIdxEdge        = "idx:edge:"
	prefixIdxReverseEdge = "idx:redge:"
)

// Store implements graph.Store using BadgerDB. Nodes and edges are stored as
// JSON values; forward and reverse secondary indexes make edge lookups by
// endpoint a prefix scan.
type Store struct {
	db *badger.DB
}

// NewStore opens (or creates) a BadgerDB-backed graph store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &graph.StorageError{Op: "open graph db", Err: err}
	}
	return &Store{db: db}, nil
}

func caseKey(id string) []byte   { return []byte(prefixCase + id) }
func entityKey(id string) []byte { return []byte(prefixEntity + id) }
func edgeKey(id string) []byte   { return []byte(prefixEdge + id) }

// indexEdgeKey returns a secondary index key for forward edge lookup.
func indexEdgeKey(sourceID string, rel graph.Relation, edgeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixIdxEdge, sourceID, rel, edgeID))
}

// indexReverseEdgeKey returns a secondary index key for reverse edge lookup.
func indexReverseEdgeKey(targetID string, rel graph.Relation, edgeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixIdxReverseEdge, targetID, rel, edgeID))
}

func (s *Store) AddCase(_ context.Context, node *graph.CaseNode, entities []graph.Entity) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("add case: empty case id: %w", graph.ErrInvalidInput)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		// Overwrite semantics: drop extraction edges from a previous version
		// of this case before writing the new set.
		if err := dropForwardEdgesInTxn(txn, node.ID, graph.RelationTests); err != nil {
			return err
		}
		if err := dropForwardEdgesInTxn(txn, node.ID, graph.RelationBelongsToRole); err != nil {
			return err
		}

		c := *node
		c.EntityIDs = nil
		for _, ent := range entities {
			eid := ent.ID()
			c.EntityIDs = append(c.EntityIDs, eid)
			if _, err := txn.Get(entityKey(eid)); errors.Is(err, badger.ErrKeyNotFound) {
				merged := ent
				merged.Value = graph.NormalizeValue(ent.Value)
				if err := putJSON(txn, entityKey(eid), &merged); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if err := putEdgeInTxn(txn, &graph.Edge{
				ID:       graph.NewEdgeID(graph.RelationTests, c.ID, eid),
				Relation: graph.RelationTests,
				SourceID: c.ID,
				TargetID: eid,
			}); err != nil {
				return err
			}
			if ent.Type == graph.EntityUserRole {
				if err := putEdgeInTxn(txn, &graph.Edge{
					ID:       graph.NewEdgeID(graph.RelationBelongsToRole, c.ID, eid),
					Relation: graph.RelationBelongsToRole,
					SourceID: c.ID,
					TargetID: eid,
				}); err != nil {
					return err
				}
			}
		}
		sort.Strings(c.EntityIDs)
		return putJSON(txn, caseKey(c.ID), &c)
	})
	if err != nil {
		return &graph.StorageError{Op: fmt.Sprintf("add case %s", node.ID), Err: err}
	}
	return nil
}

func (s *Store) GetCase(_ context.Context, id string) (*graph.CaseNode, error) {
	var node graph.CaseNode
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, caseKey(id), &node)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("get case %s: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return nil, &graph.StorageError{Op: fmt.Sprintf("get case %s", id), Err: err}
	}
	return &node, nil
}

func (s *Store) GetEntity(_ context.Context, id string) (*graph.Entity, error) {
	var ent graph.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, entityKey(id), &ent)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("get entity %s: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return nil, &graph.StorageError{Op: fmt.Sprintf("get entity %s", id), Err: err}
	}
	return &ent, nil
}

func (s *Store) EdgesFrom(_ context.Context, nodeID string, rel graph.Relation, dir graph.Direction) ([]*graph.Edge, error) {
	seen := make(map[string]struct{})
	var results []*graph.Edge

	err := s.db.View(func(txn *badger.Txn) error {
		var edgeIDs []string
		if dir == graph.Outgoing || dir == graph.Both {
			ids, err := scanIndexPrefix(txn, buildEdgeIndexPrefix(prefixIdxEdge, nodeID, rel))
			if err != nil {
				return err
			}
			edgeIDs = append(edgeIDs, ids...)
		}
		if dir == graph.Incoming || dir == graph.Both {
			ids, err := scanIndexPrefix(txn, buildEdgeIndexPrefix(prefixIdxReverseEdge, nodeID, rel))
			if err != nil {
				return err
			}
			edgeIDs = append(edgeIDs, ids...)
		}
		for _, eid := range edgeIDs {
			if _, ok := seen[eid]; ok {
				continue
			}
			seen[eid] = struct{}{}
			var edge graph.Edge
			if err := getJSON(txn, edgeKey(eid), &edge); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue // index entry for deleted edge; skip
				}
				return err
			}
			results = append(results, &edge)
		}
		return nil
	})
	if err != nil {
		return nil, &graph.StorageError{Op: fmt.Sprintf("edges from %s", nodeID), Err: err}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *Store) LinkVariables(_ context.Context, caseID string, names []string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(caseKey(caseID)); errors.Is(err, badger.ErrKeyNotFound) {
			return nil // unknown case: no-op
		} else if err != nil {
			return err
		}
		for _, name := range names {
			if graph.NormalizeValue(name) == "" {
				continue
			}
			vid := graph.VariableID(name)
			if _, err := txn.Get(entityKey(vid)); errors.Is(err, badger.ErrKeyNotFound) {
				ent := graph.Entity{
					Type:         graph.EntityVariable,
					Value:        graph.NormalizeValue(name),
					SourceCaseID: caseID,
				}
				if err := putJSON(txn, entityKey(vid), &ent); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if err := putEdgeInTxn(txn, &graph.Edge{
				ID:       graph.NewEdgeID(graph.RelationUsesVariable, caseID, vid),
				Relation: graph.RelationUsesVariable,
				SourceID: caseID,
				TargetID: vid,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &graph.StorageError{Op: fmt.Sprintf("link variables %s", caseID), Err: err}
	}
	return nil
}

func (s *Store) RemoveCase(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var node graph.CaseNode
		if err := getJSON(txn, caseKey(id), &node); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // unknown case: no-op
			}
			return err
		}
		node.Inactive = true
		return putJSON(txn, caseKey(id), &node)
	})
	if err != nil {
		return &graph.StorageError{Op: fmt.Sprintf("remove case %s", id), Err: err}
	}
	return nil
}

func (s *Store) Cases(_ context.Context) ([]*graph.CaseNode, error) {
	var results []*graph.CaseNode
	err := s.db.View(func(txn *badger.Txn) error {
		return scanCases(txn, func(node *graph.CaseNode) bool {
			if !node.Inactive {
				results = append(results, node)
			}
			return true
		})
	})
	if err != nil {
		return nil, &graph.StorageError{Op: "list cases", Err: err}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *Store) Stats(_ context.Context) (*graph.Stats, error) {
	stats := &graph.Stats{EdgesByRelation: make(map[graph.Relation]int64)}
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanCases(txn, func(node *graph.CaseNode) bool {
			if node.Inactive {
				stats.TombstoneCount++
			} else {
				stats.CaseCount++
			}
			return true
		}); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEntity)
		it := txn.NewIterator(opts)
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			stats.EntityCount++
		}
		it.Close()

		eopts := badger.DefaultIteratorOptions
		eopts.PrefetchValues = true
		eopts.Prefix = []byte(prefixEdge)
		eit := txn.NewIterator(eopts)
		defer eit.Close()
		for eit.Seek(eopts.Prefix); eit.Valid(); eit.Next() {
			var edge graph.Edge
			if err := eit.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			}); err != nil {
				continue
			}
			stats.EdgeCount++
			stats.EdgesByRelation[edge.Relation]++
		}
		return nil
	})
	if err != nil {
		return nil, &graph.StorageError{Op: "graph stats", Err: err}
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- helpers ---

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// putEdgeInTxn writes an edge and its forward and reverse index entries.
func putEdgeInTxn(txn *badger.Txn, edge *graph.Edge) error {
	if err := putJSON(txn, edgeKey(edge.ID), edge); err != nil {
		return err
	}
	if err := txn.Set(indexEdgeKey(edge.SourceID, edge.Relation, edge.ID), nil); err != nil {
		return err
	}
	return txn.Set(indexReverseEdgeKey(edge.TargetID, edge.Relation, edge.ID), nil)
}

// dropForwardEdgesInTxn removes all edges with the given relation sourced at
// nodeID, including their index entries.
func dropForwardEdgesInTxn(txn *badger.Txn, nodeID string, rel graph.Relation) error {
	edgeIDs, err := scanIndexPrefix(txn, buildEdgeIndexPrefix(prefixIdxEdge, nodeID, rel))
	if err != nil {
		return err
	}
	for _, eid := range edgeIDs {
		var edge graph.Edge
		if err := getJSON(txn, edgeKey(eid), &edge); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				_ = txn.Delete(indexEdgeKey(nodeID, rel, eid))
				continue
			}
			return err
		}
		_ = txn.Delete(indexEdgeKey(edge.SourceID, edge.Relation, edge.ID))
		_ = txn.Delete(indexReverseEdgeKey(edge.TargetID, edge.Relation, edge.ID))
		if err := txn.Delete(edgeKey(eid)); err != nil {
			return err
		}
	}
	return nil
}

// buildEdgeIndexPrefix constructs the prefix for scanning edge indexes.
// If rel is empty, it scans all relations for the given nodeID.
func buildEdgeIndexPrefix(prefix, nodeID string, rel graph.Relation) []byte {
	if rel == "" {
		return []byte(fmt.Sprintf("%s%s:", prefix, nodeID))
	}
	return []byte(fmt.Sprintf("%s%s:%s:", prefix, nodeID, rel))
}

// scanIndexPrefix scans all keys with the given prefix and extracts the
// trailing ID segment (the last colon-separated part).
func scanIndexPrefix(txn *badger.Txn, prefix []byte) ([]string, error) {
	var ids []string
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.Valid(); it.Next() {
		key := string(it.Item().Key())
		if idx := strings.LastIndex(key, ":"); idx >= 0 && idx < len(key)-1 {
			ids = append(ids, key[idx+1:])
		}
	}
	return ids, nil
}

// scanCases iterates over all case entries and calls fn for each.
// Return false from fn to stop iteration.
func scanCases(txn *badger.Txn, fn func(*graph.CaseNode) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = []byte(prefixCase)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		var node graph.CaseNode
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		}); err != nil {
			continue
		}
		if !fn(&node) {
			break
		}
	}
	return nil
}
