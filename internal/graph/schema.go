package graph

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// EntityType represents the category of an entity extracted from a user story.
type EntityType string

const (
	EntityUserRole       EntityType = "UserRole"
	EntityFunctionalArea EntityType = "FunctionalArea"
	EntityTestType       EntityType = "TestType"
	EntityAction         EntityType = "Action"
	EntityObject         EntityType = "Object"
	// EntityVariable is a persisted test variable linked to a case via a
	// UsesVariable edge. Created only on an explicit save, never by extraction.
	EntityVariable EntityType = "Variable"
)

// Relation represents the type of a directed edge in the knowledge graph.
type Relation string

const (
	RelationTests         Relation = "tests"
	RelationBelongsToRole Relation = "belongs-to-role"
	RelationUsesVariable  Relation = "uses-variable"
)

// UnspecifiedValue is the placeholder value for a required entity category
// that produced no lexicon match.
const UnspecifiedValue = "unspecified"

// Entity is a typed atom of meaning extracted from a user story.
// Identity is (Type, normalized Value); entities are immutable once created.
type Entity struct {
	Type         EntityType `json:"type" yaml:"type"`
	Value        string     `json:"value" yaml:"value"`
	SourceCaseID string     `json:"source_case_id,omitempty" yaml:"source_case_id,omitempty"`
}

// ID returns the stable graph node id for the entity.
func (e Entity) ID() string {
	return EntityID(e.Type, e.Value)
}

// CaseNode is a UAT test case stored in the knowledge graph.
type CaseNode struct {
	ID             string    `json:"id" yaml:"id"`
	Title          string    `json:"title" yaml:"title"`
	Steps          []string  `json:"steps" yaml:"steps"`
	ExpectedResult string    `json:"expected_result" yaml:"expected_result"`
	EntityIDs      []string  `json:"entity_ids,omitempty" yaml:"entity_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	// Inactive marks a tombstoned case. Tombstoned cases are skipped by
	// traversal but kept in the store to preserve edge integrity.
	Inactive bool `json:"inactive,omitempty" yaml:"inactive,omitempty"`
}

// Text returns the flattened textual content of the case, used for embedding.
func (c *CaseNode) Text() string {
	parts := make([]string, 0, len(c.Steps)+2)
	parts = append(parts, c.Title)
	parts = append(parts, c.Steps...)
	parts = append(parts, c.ExpectedResult)
	return strings.Join(parts, "\n")
}

// Edge is a directed, typed relationship between two graph nodes.
// The graph is a multigraph: multiple relations may connect the same pair.
type Edge struct {
	ID       string   `json:"id" yaml:"id"`
	Relation Relation `json:"relation" yaml:"relation"`
	SourceID string   `json:"source_id" yaml:"source_id"`
	TargetID string   `json:"target_id" yaml:"target_id"`
}

// Stats holds aggregate statistics about the knowledge graph.
type Stats struct {
	CaseCount       int64              `json:"case_count"`
	TombstoneCount  int64              `json:"tombstone_count"`
	EntityCount     int64              `json:"entity_count"`
	EdgeCount       int64              `json:"edge_count"`
	EdgesByRelation map[Relation]int64 `json:"edges_by_relation"`
}

// NormalizeValue canonicalizes an entity value for identity comparison.
func NormalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// EntityID builds the stable node id for an entity from its type and value.
func EntityID(t EntityType, value string) string {
	return fmt.Sprintf("%s:%s", t, NormalizeValue(value))
}

// VariableID builds the stable node id for a persisted test variable.
func VariableID(name string) string {
	return EntityID(EntityVariable, name)
}

// NewCaseID generates a deterministic case id from the case content.
// The id is a hex-encoded SHA-256 hash prefix to keep keys compact and
// collision-resistant.
func NewCaseID(title string, steps []string, expectedResult string) string {
	raw := title + "\x1f" + strings.Join(steps, "\x1f") + "\x1f" + expectedResult
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:12])
}

// NewEdgeID generates a deterministic edge id so that re-adding the same
// relationship is idempotent.
func NewEdgeID(rel Relation, sourceID, targetID string) string {
	raw := fmt.Sprintf("%s|%s|%s", rel, sourceID, targetID)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:12])
}
