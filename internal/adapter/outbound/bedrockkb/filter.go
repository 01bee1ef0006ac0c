package bedrockkb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// buildFilter converts the caller's mapping-form metadata filter into the
// SDK's tagged-union form. The mapping mirrors the wire shape of the
// Bedrock API: exactly one operator key, whose operand is either
// {"key": ..., "value": ...} for comparisons or a list of nested filters
// for andAll/orAll.
//
//	{"equals": {"key": "department", "value": "finance"}}
//	{"andAll": [{...}, {...}]}
func buildFilter(f map[string]any) (types.RetrievalFilter, error) {
	if len(f) != 1 {
		return nil, fmt.Errorf("metadata filter must have exactly one operator key, got %d", len(f))
	}

	var op string
	var operand any
	for k, v := range f {
		op, operand = k, v
	}

	switch op {
	case "andAll", "orAll":
		nested, err := buildFilterList(op, operand)
		if err != nil {
			return nil, err
		}
		if op == "andAll" {
			return &types.RetrievalFilterMemberAndAll{Value: nested}, nil
		}
		return &types.RetrievalFilterMemberOrAll{Value: nested}, nil
	}

	attr, err := buildFilterAttribute(op, operand)
	if err != nil {
		return nil, err
	}

	switch op {
	case "equals":
		return &types.RetrievalFilterMemberEquals{Value: attr}, nil
	case "notEquals":
		return &types.RetrievalFilterMemberNotEquals{Value: attr}, nil
	case "greaterThan":
		return &types.RetrievalFilterMemberGreaterThan{Value: attr}, nil
	case "greaterThanOrEquals":
		return &types.RetrievalFilterMemberGreaterThanOrEquals{Value: attr}, nil
	case "lessThan":
		return &types.RetrievalFilterMemberLessThan{Value: attr}, nil
	case "lessThanOrEquals":
		return &types.RetrievalFilterMemberLessThanOrEquals{Value: attr}, nil
	case "in":
		return &types.RetrievalFilterMemberIn{Value: attr}, nil
	case "notIn":
		return &types.RetrievalFilterMemberNotIn{Value: attr}, nil
	case "startsWith":
		return &types.RetrievalFilterMemberStartsWith{Value: attr}, nil
	case "stringContains":
		return &types.RetrievalFilterMemberStringContains{Value: attr}, nil
	case "listContains":
		return &types.RetrievalFilterMemberListContains{Value: attr}, nil
	default:
		return nil, fmt.Errorf("unsupported filter operator %q", op)
	}
}

// buildFilterList converts the operand of andAll/orAll.
func buildFilterList(op string, operand any) ([]types.RetrievalFilter, error) {
	entries, ok := operand.([]any)
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("%s operand must be a non-empty list of filters", op)
	}

	filters := make([]types.RetrievalFilter, 0, len(entries))
	for i, entry := range entries {
		nested, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a filter mapping", op, i)
		}
		built, err := buildFilter(nested)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		filters = append(filters, built)
	}
	return filters, nil
}

// buildFilterAttribute converts a comparison operand into a FilterAttribute.
func buildFilterAttribute(op string, operand any) (types.FilterAttribute, error) {
	m, ok := operand.(map[string]any)
	if !ok {
		return types.FilterAttribute{}, fmt.Errorf("%s operand must be a mapping with key and value", op)
	}

	key, ok := m["key"].(string)
	if !ok || key == "" {
		return types.FilterAttribute{}, fmt.Errorf("%s operand is missing a string key", op)
	}
	value, ok := m["value"]
	if !ok {
		return types.FilterAttribute{}, fmt.Errorf("%s operand is missing a value", op)
	}

	return types.FilterAttribute{
		Key:   aws.String(key),
		Value: document.NewLazyDocument(value),
	}, nil
}
