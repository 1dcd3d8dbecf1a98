package graph

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"
)

// MemoryStore implements Store with an in-process arena of nodes and edges
// addressed by stable string ids. Writes take an exclusive lock; reads are
// shared and operate over copied adjacency slices so concurrent traversals
// never observe a mutation mid-flight.
//
// The store is volatile by default; SaveSnapshot and LoadSnapshot provide
// persist-on-demand to a YAML file.
type MemoryStore struct {
	mu       sync.RWMutex
	cases    map[string]*CaseNode
	entities map[string]*Entity
	edges    map[string]*Edge
	outgoing map[string][]string // node id -> edge ids where node is source
	incoming map[string][]string // node id -> edge ids where node is target
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:    make(map[string]*CaseNode),
		entities: make(map[string]*Entity),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

func (s *MemoryStore) AddCase(_ context.Context, node *CaseNode, entities []Entity) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("add case: empty case id: %w", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Overwrite semantics: drop extraction edges from a previous version of
	// this case. uses-variable edges are caller-managed and survive.
	s.dropForwardEdges(node.ID, RelationTests)
	s.dropForwardEdges(node.ID, RelationBelongsToRole)

	c := cloneCase(node)
	c.EntityIDs = c.EntityIDs[:0]
	for _, ent := range entities {
		eid := ent.ID()
		if _, ok := s.entities[eid]; !ok {
			merged := ent
			merged.Value = NormalizeValue(ent.Value)
			s.entities[eid] = &merged
		}
		c.EntityIDs = append(c.EntityIDs, eid)
		s.addEdge(&Edge{
			ID:       NewEdgeID(RelationTests, c.ID, eid),
			Relation: RelationTests,
			SourceID: c.ID,
			TargetID: eid,
		})
		if ent.Type == EntityUserRole {
			s.addEdge(&Edge{
				ID:       NewEdgeID(RelationBelongsToRole, c.ID, eid),
				Relation: RelationBelongsToRole,
				SourceID: c.ID,
				TargetID: eid,
			})
		}
	}
	sort.Strings(c.EntityIDs)
	s.cases[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCase(_ context.Context, id string) (*CaseNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("get case %s: %w", id, ErrNotFound)
	}
	return cloneCase(c), nil
}

func (s *MemoryStore) GetEntity(_ context.Context, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("get entity %s: %w", id, ErrNotFound)
	}
	clone := *e
	return &clone, nil
}

func (s *MemoryStore) EdgesFrom(_ context.Context, nodeID string, rel Relation, dir Direction) ([]*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edgeIDs []string
	if dir == Outgoing || dir == Both {
		edgeIDs = append(edgeIDs, s.outgoing[nodeID]...)
	}
	if dir == Incoming || dir == Both {
		edgeIDs = append(edgeIDs, s.incoming[nodeID]...)
	}

	seen := make(map[string]struct{}, len(edgeIDs))
	var result []*Edge
	for _, eid := range edgeIDs {
		if _, ok := seen[eid]; ok {
			continue
		}
		seen[eid] = struct{}{}
		e, ok := s.edges[eid]
		if !ok {
			continue
		}
		if rel != "" && e.Relation != rel {
			continue
		}
		clone := *e
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) LinkVariables(_ context.Context, caseID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return nil
	}
	for _, name := range names {
		if NormalizeValue(name) == "" {
			continue
		}
		vid := VariableID(name)
		if _, ok := s.entities[vid]; !ok {
			s.entities[vid] = &Entity{
				Type:         EntityVariable,
				Value:        NormalizeValue(name),
				SourceCaseID: caseID,
			}
		}
		s.addEdge(&Edge{
			ID:       NewEdgeID(RelationUsesVariable, caseID, vid),
			Relation: RelationUsesVariable,
			SourceID: caseID,
			TargetID: vid,
		})
	}
	return nil
}

func (s *MemoryStore) RemoveCase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil
	}
	c.Inactive = true
	return nil
}

func (s *MemoryStore) Cases(_ context.Context) ([]*CaseNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*CaseNode
	for _, c := range s.cases {
		if c.Inactive {
			continue
		}
		result = append(result, cloneCase(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &Stats{EdgesByRelation: make(map[Relation]int64)}
	for _, c := range s.cases {
		if c.Inactive {
			stats.TombstoneCount++
			continue
		}
		stats.CaseCount++
	}
	stats.EntityCount = int64(len(s.entities))
	for _, e := range s.edges {
		stats.EdgeCount++
		stats.EdgesByRelation[e.Relation]++
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

// snapshot is the YAML persist-on-demand format.
type snapshot struct {
	Cases    []*CaseNode `yaml:"cases"`
	Entities []*Entity   `yaml:"entities"`
	Edges    []*Edge     `yaml:"edges"`
}

// SaveSnapshot writes the full graph state to a YAML file.
func (s *MemoryStore) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := snapshot{}
	for _, c := range s.cases {
		snap.Cases = append(snap.Cases, cloneCase(c))
	}
	for _, e := range s.entities {
		clone := *e
		snap.Entities = append(snap.Entities, &clone)
	}
	for _, e := range s.edges {
		clone := *e
		snap.Edges = append(snap.Edges, &clone)
	}
	s.mu.RUnlock()

	sort.Slice(snap.Cases, func(i, j int) bool { return snap.Cases[i].ID < snap.Cases[j].ID })
	sort.Slice(snap.Entities, func(i, j int) bool { return snap.Entities[i].ID() < snap.Entities[j].ID() })
	sort.Slice(snap.Edges, func(i, j int) bool { return snap.Edges[i].ID < snap.Edges[j].ID })

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadSnapshot replaces the store contents with the state from a YAML file
// previously written by SaveSnapshot.
func (s *MemoryStore) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &StorageError{Op: "load snapshot", Err: err}
	}
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = make(map[string]*CaseNode, len(snap.Cases))
	s.entities = make(map[string]*Entity, len(snap.Entities))
	s.edges = make(map[string]*Edge, len(snap.Edges))
	s.outgoing = make(map[string][]string)
	s.incoming = make(map[string][]string)
	for _, c := range snap.Cases {
		s.cases[c.ID] = cloneCase(c)
	}
	for _, e := range snap.Entities {
		clone := *e
		s.entities[clone.ID()] = &clone
	}
	for _, e := range snap.Edges {
		clone := *e
		s.addEdge(&clone)
	}
	return nil
}

// addEdge inserts an edge unless one with the same id already exists.
// Caller must hold the write lock.
func (s *MemoryStore) addEdge(e *Edge) {
	if _, ok := s.edges[e.ID]; ok {
		return
	}
	s.edges[e.ID] = e
	s.outgoing[e.SourceID] = append(s.outgoing[e.SourceID], e.ID)
	s.incoming[e.TargetID] = append(s.incoming[e.TargetID], e.ID)
}

// dropForwardEdges removes edges with the given relation sourced at nodeID.
// Caller must hold the write lock.
func (s *MemoryStore) dropForwardEdges(nodeID string, rel Relation) {
	kept := s.outgoing[nodeID][:0]
	for _, eid := range s.outgoing[nodeID] {
		e, ok := s.edges[eid]
		if !ok {
			continue
		}
		if e.Relation != rel {
			kept = append(kept, eid)
			continue
		}
		delete(s.edges, eid)
		s.incoming[e.TargetID] = removeString(s.incoming[e.TargetID], eid)
	}
	if len(kept) == 0 {
		delete(s.outgoing, nodeID)
	} else {
		s.outgoing[nodeID] = kept
	}
}

func removeString(list []string, v string) []string {
	for i, s := range list {
		if s == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func cloneCase(c *CaseNode) *CaseNode {
	clone := *c
	clone.Steps = append([]string(nil), c.Steps...)
	clone.EntityIDs = append([]string(nil), c.EntityIDs...)
	return &clone
}
