package loam

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Combinator is the boolean connective of a filter group.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// Condition is one node of a boolean filter tree: either a FilterGroup
// or a FilterCondition leaf. Trees are built by construction, so cycles
// are impossible and every node except the root has exactly one parent.
type Condition interface {
	IsLeaf() bool
}

// FilterGroup combines child conditions with a single boolean
// combinator. An empty group matches everything.
type FilterGroup struct {
	Combinator Combinator  `json:"combinator"`
	Children   []Condition `json:"children"`
}

func (g *FilterGroup) IsLeaf() bool { return false }

// FilterCondition is a leaf comparing one field against a literal
// value. The value stays string-typed at this boundary; numeric and
// date coercion happen inside the generated SQL.
type FilterCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value,omitempty"`
}

func (c *FilterCondition) IsLeaf() bool { return true }

// UnmarshalJSON decodes nested children into the appropriate concrete
// condition implementations.
func (g *FilterGroup) UnmarshalJSON(data []byte) error {
	type groupAlias struct {
		Combinator *Combinator       `json:"combinator"`
		Children   []json.RawMessage `json:"children"`
	}

	var alias groupAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	if alias.Combinator == nil {
		return NewInvalidFilterError("filter group missing combinator")
	}

	switch *alias.Combinator {
	case CombinatorAnd, CombinatorOr:
		g.Combinator = *alias.Combinator
	default:
		return NewInvalidFilterError(fmt.Sprintf("unknown combinator '%s'", *alias.Combinator))
	}

	if len(alias.Children) == 0 {
		g.Children = nil
		return nil
	}

	children := make([]Condition, 0, len(alias.Children))
	for _, raw := range alias.Children {
		child, err := unmarshalCondition(raw)
		if err != nil {
			return err
		}
		children = append(children, child)
	}

	g.Children = children
	return nil
}

// unmarshalCondition inspects the payload and instantiates the correct
// Condition implementation (group vs leaf), allowing nested trees to be
// decoded directly from JSON.
func unmarshalCondition(data []byte) (Condition, error) {
	var discriminator struct {
		Combinator *Combinator `json:"combinator"`
		Field      *string     `json:"field"`
	}

	if err := json.Unmarshal(data, &discriminator); err != nil {
		return nil, err
	}

	if discriminator.Combinator != nil {
		var group FilterGroup
		if err := json.Unmarshal(data, &group); err != nil {
			return nil, err
		}
		return &group, nil
	}

	if discriminator.Field != nil {
		var leaf FilterCondition
		if err := json.Unmarshal(data, &leaf); err != nil {
			return nil, err
		}
		if leaf.Field == "" {
			return nil, NewInvalidFilterError("filter condition missing field")
		}
		if _, err := ConditionOperatorFromName(string(leaf.Operator)); err != nil {
			return nil, err
		}
		return &leaf, nil
	}

	return nil, NewInvalidFilterError("invalid condition payload: expected 'combinator' or 'field'")
}

// ParseFilterTree decodes a nested filter tree from JSON.
func ParseFilterTree(data []byte) (Condition, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return unmarshalCondition(data)
}

// FilterNodeType tags a flat admin-editor node as group or condition.
type FilterNodeType string

const (
	FilterNodeTypeGroup     FilterNodeType = "group"
	FilterNodeTypeCondition FilterNodeType = "condition"
)

// FilterNode is one row of the flat node list the admin-side tree
// editor persists: every node carries its own id and its parent's id;
// groups carry a combinator, leaves carry field/operator/value.
type FilterNode struct {
	ID            uuid.UUID      `json:"id"`
	ParentID      *uuid.UUID     `json:"parentId,omitempty"`
	Type          FilterNodeType `json:"type"`
	GroupOperator Combinator     `json:"groupOperator,omitempty"`
	Field         string         `json:"field,omitempty"`
	Operator      string         `json:"operator,omitempty"`
	Value         string         `json:"value,omitempty"`
}

// BuildFilterTree reassembles the flat node list into a Condition tree.
// Nodes without a parent are roots; multiple roots (or a leaf root) are
// wrapped in an implicit AND group. A node referencing a missing parent
// or trapped in a parent cycle is a hard failure: a node that never
// reaches the root would be silently dropped from the compiled filter,
// and the query would match more rows than the caller asked for.
func BuildFilterTree(nodes []FilterNode) (Condition, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	groups := make(map[uuid.UUID]*FilterGroup, len(nodes))
	for _, node := range nodes {
		if node.Type != FilterNodeTypeGroup {
			continue
		}
		switch node.GroupOperator {
		case CombinatorAnd, CombinatorOr:
		default:
			return nil, NewInvalidFilterError(fmt.Sprintf("group node '%s' has unknown combinator '%s'", node.ID, node.GroupOperator))
		}
		groups[node.ID] = &FilterGroup{Combinator: node.GroupOperator}
	}

	// Every ancestry chain must terminate at a root. A chain that loops
	// back on itself is detached from the tree entirely, along with
	// every condition hanging off of it.
	parents := make(map[uuid.UUID]*uuid.UUID, len(nodes))
	for _, node := range nodes {
		parents[node.ID] = node.ParentID
	}
	for _, node := range nodes {
		visited := map[uuid.UUID]bool{node.ID: true}
		for parent := node.ParentID; parent != nil; parent = parents[*parent] {
			if visited[*parent] {
				return nil, NewInvalidFilterError(fmt.Sprintf("node '%s' never reaches the root: its ancestry contains a cycle", node.ID))
			}
			visited[*parent] = true
		}
	}

	root := &FilterGroup{Combinator: CombinatorAnd}
	for _, node := range nodes {
		var child Condition
		switch node.Type {
		case FilterNodeTypeGroup:
			child = groups[node.ID]
		case FilterNodeTypeCondition:
			if node.Field == "" {
				return nil, NewInvalidFilterError(fmt.Sprintf("condition node '%s' missing field", node.ID))
			}
			op, err := ConditionOperatorFromName(node.Operator)
			if err != nil {
				return nil, err
			}
			child = &FilterCondition{Field: node.Field, Operator: op, Value: node.Value}
		default:
			return nil, NewInvalidFilterError(fmt.Sprintf("node '%s' has unknown type '%s'", node.ID, node.Type))
		}

		if node.ParentID == nil {
			root.Children = append(root.Children, child)
			continue
		}
		parent, ok := groups[*node.ParentID]
		if !ok {
			return nil, NewInvalidFilterError(fmt.Sprintf("node '%s' references missing parent '%s'", node.ID, *node.ParentID))
		}
		parent.Children = append(parent.Children, child)
	}

	if len(root.Children) == 1 {
		if group, ok := root.Children[0].(*FilterGroup); ok {
			return group, nil
		}
	}
	return root, nil
}

// ParseFlatFilters treats a flat list of "<field> <operator> [value]"
// strings as a degenerate single-level AND group, compiled by the same
// compiler as full trees.
func ParseFlatFilters(filters []string) (Condition, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	group := &FilterGroup{Combinator: CombinatorAnd}
	for _, raw := range filters {
		parts := strings.SplitN(strings.TrimSpace(raw), " ", 3)
		if len(parts) < 2 {
			return nil, NewInvalidFilterError(fmt.Sprintf("malformed filter '%s', expected '<field> <operator> [value]'", raw))
		}
		op, err := ConditionOperatorFromName(parts[1])
		if err != nil {
			return nil, err
		}
		leaf := &FilterCondition{Field: parts[0], Operator: op}
		if len(parts) == 3 {
			leaf.Value = parts[2]
		}
		if op.NeedsValue() && leaf.Value == "" {
			return nil, NewInvalidFilterError(fmt.Sprintf("filter '%s' is missing a comparison value", raw))
		}
		group.Children = append(group.Children, leaf)
	}
	return group, nil
}
