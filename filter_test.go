package loam

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseFilterTree(t *testing.T) {
	payload := `{
		"combinator": "and",
		"children": [
			{"field": "title", "operator": "contains", "value": "go"},
			{
				"combinator": "or",
				"children": [
					{"field": "category", "operator": "equals", "value": "news"},
					{"field": "featured", "operator": "is_true"}
				]
			}
		]
	}`

	node, err := ParseFilterTree([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root, ok := node.(*FilterGroup)
	if !ok {
		t.Fatalf("expected *FilterGroup root, got %T", node)
	}
	if root.Combinator != CombinatorAnd || len(root.Children) != 2 {
		t.Fatalf("unexpected root: %+v", root)
	}

	first, ok := root.Children[0].(*FilterCondition)
	if !ok || !first.IsLeaf() {
		t.Fatalf("expected leaf first child, got %T", root.Children[0])
	}
	if first.Field != "title" || first.Operator != OpContains || first.Value != "go" {
		t.Fatalf("unexpected leaf: %+v", first)
	}

	nested, ok := root.Children[1].(*FilterGroup)
	if !ok || nested.IsLeaf() {
		t.Fatalf("expected nested group, got %T", root.Children[1])
	}
	if nested.Combinator != CombinatorOr || len(nested.Children) != 2 {
		t.Fatalf("unexpected nested group: %+v", nested)
	}

	boolean := nested.Children[1].(*FilterCondition)
	if boolean.Operator != OpIsTrue || boolean.Value != "" {
		t.Fatalf("unexpected boolean leaf: %+v", boolean)
	}
}

func TestParseFilterTree_SingleLeaf(t *testing.T) {
	node, err := ParseFilterTree([]byte(`{"field": "price", "operator": "greater_than", "value": "10"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := node.(*FilterCondition); !ok {
		t.Fatalf("expected leaf root, got %T", node)
	}
}

func TestParseFilterTree_Empty(t *testing.T) {
	node, err := ParseFilterTree(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node != nil {
		t.Fatalf("expected nil condition, got %+v", node)
	}
}

func TestParseFilterTree_Invalid(t *testing.T) {
	payloads := map[string]string{
		"no discriminator":    `{"value": "x"}`,
		"unknown combinator":  `{"combinator": "xor", "children": []}`,
		"missing field":       `{"field": "", "operator": "equals"}`,
		"unknown operator":    `{"field": "title", "operator": "almost_equals"}`,
		"bad nested child":    `{"combinator": "and", "children": [{"value": "x"}]}`,
		"missing combinator":  `{"children": [{"field": "a", "operator": "equals", "value": "1"}]}`,
	}
	for name, payload := range payloads {
		if _, err := ParseFilterTree([]byte(payload)); err == nil {
			t.Fatalf("%s: expected parse failure", name)
		} else if !IsValidationError(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestBuildFilterTree(t *testing.T) {
	rootID := uuid.New()
	orID := uuid.New()

	nodes := []FilterNode{
		{ID: rootID, Type: FilterNodeTypeGroup, GroupOperator: CombinatorAnd},
		{ID: uuid.New(), ParentID: &rootID, Type: FilterNodeTypeCondition, Field: "title", Operator: "contains", Value: "go"},
		{ID: orID, ParentID: &rootID, Type: FilterNodeTypeGroup, GroupOperator: CombinatorOr},
		{ID: uuid.New(), ParentID: &orID, Type: FilterNodeTypeCondition, Field: "category", Operator: "equals", Value: "news"},
		{ID: uuid.New(), ParentID: &orID, Type: FilterNodeTypeCondition, Field: "featured", Operator: "is_true"},
	}

	node, err := BuildFilterTree(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root, ok := node.(*FilterGroup)
	if !ok {
		t.Fatalf("expected group root, got %T", node)
	}
	if root.Combinator != CombinatorAnd || len(root.Children) != 2 {
		t.Fatalf("single group root must be unwrapped, got %+v", root)
	}
	nested, ok := root.Children[1].(*FilterGroup)
	if !ok || nested.Combinator != CombinatorOr || len(nested.Children) != 2 {
		t.Fatalf("unexpected nested group: %+v", root.Children[1])
	}
}

func TestBuildFilterTree_RootLeaves(t *testing.T) {
	nodes := []FilterNode{
		{ID: uuid.New(), Type: FilterNodeTypeCondition, Field: "title", Operator: "equals", Value: "a"},
		{ID: uuid.New(), Type: FilterNodeTypeCondition, Field: "title", Operator: "equals", Value: "b"},
	}
	node, err := BuildFilterTree(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root, ok := node.(*FilterGroup)
	if !ok || root.Combinator != CombinatorAnd || len(root.Children) != 2 {
		t.Fatalf("parentless leaves must gather under an implicit AND root, got %+v", node)
	}
}

func TestBuildFilterTree_ParentCycle(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	nodes := []FilterNode{
		{ID: first, ParentID: &second, Type: FilterNodeTypeGroup, GroupOperator: CombinatorAnd},
		{ID: second, ParentID: &first, Type: FilterNodeTypeGroup, GroupOperator: CombinatorOr},
		{ID: uuid.New(), ParentID: &first, Type: FilterNodeTypeCondition, Field: "title", Operator: "equals", Value: "x"},
	}

	_, err := BuildFilterTree(nodes)
	if err == nil {
		t.Fatal("mutually-parented groups must fail, not silently drop their conditions")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var qe *QueryError
	if !errors.As(err, &qe) || qe.Code != ErrCodeInvalidFilter {
		t.Fatalf("expected %s, got %v", ErrCodeInvalidFilter, err)
	}
}

func TestBuildFilterTree_SelfParent(t *testing.T) {
	id := uuid.New()
	nodes := []FilterNode{
		{ID: id, ParentID: &id, Type: FilterNodeTypeGroup, GroupOperator: CombinatorAnd},
	}
	if _, err := BuildFilterTree(nodes); err == nil {
		t.Fatal("a self-parented group must fail")
	}
}

func TestBuildFilterTree_Failures(t *testing.T) {
	missing := uuid.New()
	tests := map[string][]FilterNode{
		"missing parent": {
			{ID: uuid.New(), ParentID: &missing, Type: FilterNodeTypeCondition, Field: "title", Operator: "equals", Value: "x"},
		},
		"group without combinator": {
			{ID: uuid.New(), Type: FilterNodeTypeGroup},
		},
		"condition without field": {
			{ID: uuid.New(), Type: FilterNodeTypeCondition, Operator: "equals", Value: "x"},
		},
		"unknown node type": {
			{ID: uuid.New(), Type: "leaf", Field: "title", Operator: "equals"},
		},
	}
	for name, nodes := range tests {
		if _, err := BuildFilterTree(nodes); err == nil {
			t.Fatalf("%s: expected failure", name)
		}
	}

	node, err := BuildFilterTree(nil)
	if err != nil || node != nil {
		t.Fatalf("empty node list: expected nil tree, got %v, %v", node, err)
	}
}

func TestParseFlatFilters(t *testing.T) {
	node, err := ParseFlatFilters([]string{
		"title contains go tooling",
		"featured is_true",
		"price greater_than 10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group, ok := node.(*FilterGroup)
	if !ok || group.Combinator != CombinatorAnd {
		t.Fatalf("expected AND group, got %+v", node)
	}
	if len(group.Children) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(group.Children))
	}

	first := group.Children[0].(*FilterCondition)
	if first.Value != "go tooling" {
		t.Fatalf("value must keep embedded spaces, got %q", first.Value)
	}
	second := group.Children[1].(*FilterCondition)
	if second.Operator != OpIsTrue || second.Value != "" {
		t.Fatalf("unexpected leaf: %+v", second)
	}
}

func TestParseFlatFilters_Failures(t *testing.T) {
	tests := map[string][]string{
		"too few tokens":     {"title"},
		"unknown operator":   {"title roughly x"},
		"missing value":      {"title equals"},
	}
	for name, filters := range tests {
		if _, err := ParseFlatFilters(filters); err == nil {
			t.Fatalf("%s: expected failure", name)
		}
	}

	node, err := ParseFlatFilters(nil)
	if err != nil || node != nil {
		t.Fatalf("empty list: expected nil tree, got %v, %v", node, err)
	}
}

func TestContentQueryRequest_UnmarshalJSON(t *testing.T) {
	payload := `{
		"contentTypeId": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e",
		"search": "go",
		"searchColumns": ["title"],
		"pageSize": 10,
		"pageNumber": 2,
		"orderBy": "title asc",
		"filter": {
			"combinator": "and",
			"children": [{"field": "title", "operator": "equals", "value": "x"}]
		}
	}`

	var req ContentQueryRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ContentTypeID.String() != "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e" {
		t.Fatalf("unexpected content type id: %s", req.ContentTypeID)
	}
	if req.Search != "go" || req.PageSize != 10 || req.PageNumber != 2 || req.OrderBy != "title asc" {
		t.Fatalf("unexpected request fields: %+v", req)
	}
	group, ok := req.Filter.(*FilterGroup)
	if !ok || group.Combinator != CombinatorAnd || len(group.Children) != 1 {
		t.Fatalf("filter must decode through the condition discriminator, got %+v", req.Filter)
	}
	leaf := group.Children[0].(*FilterCondition)
	if leaf.Field != "title" || leaf.Operator != OpEquals || leaf.Value != "x" {
		t.Fatalf("unexpected leaf: %+v", leaf)
	}
}

func TestContentQueryRequest_UnmarshalJSON_Filterless(t *testing.T) {
	for name, payload := range map[string]string{
		"absent filter": `{"contentTypeId": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e"}`,
		"null filter":   `{"contentTypeId": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e", "filter": null}`,
	} {
		var req ContentQueryRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if req.Filter != nil {
			t.Fatalf("%s: expected nil filter, got %+v", name, req.Filter)
		}
	}

	var req ContentQueryRequest
	err := json.Unmarshal([]byte(`{"filter": {"value": "x"}}`), &req)
	if err == nil {
		t.Fatal("a filter payload without a discriminator must fail")
	}
}
