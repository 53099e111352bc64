// Package filter implements the declarative metadata predicate tree applied
// to search candidates after index-level retrieval.
package filter

import (
	"encoding/json"
	"fmt"
	"time"

	"vectra/internal/store"
)

// Operator is a metadata comparison operator.
type Operator string

const (
	OpEquals       Operator = "eq"
	OpNotEquals    Operator = "ne"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
)

// LogicalOperator combines the children of a group.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// Predicate is a single metadata comparison: look up Field in the chunk
// metadata and compare against Value.
type Predicate struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

// Group combines predicates and nested groups under a logical operator.
// An "and" of zero children is true; an "or" of zero children is false.
type Group struct {
	Operator LogicalOperator `json:"operator"`
	Filters  []Node          `json:"filters"`
}

// Node is one element of a group's filter list: either a nested Group or a
// leaf Predicate. The wire form distinguishes them by shape: a node with
// an "operator" key is a group, one with a "field" key is a predicate.
type Node struct {
	Group     *Group
	Predicate *Predicate
}

// UnmarshalJSON implements the shape-tagged decoding described on Node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["operator"]; ok {
		var g Group
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		n.Group = &g
		return nil
	}
	if _, ok := probe["field"]; ok {
		var p Predicate
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		n.Predicate = &p
		return nil
	}
	return fmt.Errorf("filter node needs an %q or %q key", "operator", "field")
}

// MarshalJSON emits the underlying group or predicate.
func (n Node) MarshalJSON() ([]byte, error) {
	switch {
	case n.Group != nil:
		return json.Marshal(n.Group)
	case n.Predicate != nil:
		return json.Marshal(n.Predicate)
	default:
		return nil, fmt.Errorf("empty filter node")
	}
}

// SearchFilters is the full declarative filter for a query: a metadata
// predicate tree plus optional temporal and document-id constraints, all
// conjoined.
type SearchFilters struct {
	Metadata      *Group     `json:"metadata,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	DocumentIDs   []string   `json:"document_ids,omitempty"`
}

// IsZero reports whether no constraint is set.
func (f *SearchFilters) IsZero() bool {
	return f == nil ||
		(f.Metadata == nil && f.CreatedAfter == nil && f.CreatedBefore == nil && len(f.DocumentIDs) == 0)
}

// Validate checks operator tokens across the tree.
func (f *SearchFilters) Validate() error {
	if f == nil || f.Metadata == nil {
		return nil
	}
	return f.Metadata.validate()
}

func (g *Group) validate() error {
	switch g.Operator {
	case LogicalAnd, LogicalOr:
	default:
		return fmt.Errorf("unknown logical operator %q: %w", g.Operator, store.ErrInvalidArgument)
	}
	for _, node := range g.Filters {
		switch {
		case node.Group != nil:
			if err := node.Group.validate(); err != nil {
				return err
			}
		case node.Predicate != nil:
			if err := node.Predicate.validate(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("empty filter node: %w", store.ErrInvalidArgument)
		}
	}
	return nil
}

func (p *Predicate) validate() error {
	switch p.Op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual,
		OpIn, OpNotIn, OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return nil
	default:
		return fmt.Errorf("unknown filter operator %q: %w", p.Op, store.ErrInvalidArgument)
	}
}
