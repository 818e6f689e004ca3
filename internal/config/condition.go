package config

import (
	"fmt"

	"github.com/khryptorgraphics/taskgate/pkg/condition"
	"github.com/khryptorgraphics/taskgate/pkg/exprlang"
)

// buildCondition compiles one priority-tree node's condition/condition-expr
// field into a condition.Node, dispatching on the pool's syntax mode.
//
// In CONDITION_TREE mode, raw is either:
//   - a plain string, taken as a bare $req./$ctx./$sys. field reference that
//     must be present (sugar for Exists), or
//   - a structured map with a single recognized operator key
//     ("equals", "not_equals", "gt", "gte", "lt", "lte", "between", "in",
//     "not_in", "contains", "regex", "starts_with", "ends_with", "exists",
//     "is_null", "and", "or", "not", "always_true").
func buildCondition(syntax string, raw any, expr string) (*condition.Node, error) {
	if syntax == SyntaxConditionExpr {
		if raw != nil {
			return nil, newLoadError(CodeSyntaxMismatch, "condition-expr syntax mode forbids the structured 'condition' key", nil)
		}
		node, err := exprlang.Parse(expr)
		if err != nil {
			if synErr, ok := err.(*exprlang.SyntaxError); ok {
				return nil, newLoadError(CodeBadExpression, fmt.Sprintf("position %d: %s", synErr.Position, synErr.Message), err)
			}
			return nil, newLoadError(CodeBadExpression, "failed to parse condition-expr", err)
		}
		return node, nil
	}

	if expr != "" {
		return nil, newLoadError(CodeSyntaxMismatch, "condition-tree syntax mode forbids the 'condition-expr' key", nil)
	}
	return buildStructuredCondition(raw)
}

func buildStructuredCondition(raw any) (*condition.Node, error) {
	switch v := raw.(type) {
	case nil:
		return condition.AlwaysTrue(), nil
	case string:
		return condition.Exists(v), nil
	case map[string]any:
		return buildOperator(v)
	case map[any]any:
		// yaml.v3 sometimes decodes nested maps with any-typed keys.
		normalized := make(map[string]any, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, newLoadError(CodeMalformedDocument, "condition map keys must be strings", nil)
			}
			normalized[ks] = val
		}
		return buildOperator(normalized)
	default:
		return nil, newLoadError(CodeMalformedDocument, fmt.Sprintf("unsupported condition shape %T", raw), nil)
	}
}

func buildOperator(m map[string]any) (*condition.Node, error) {
	if len(m) != 1 {
		return nil, newLoadError(CodeMalformedDocument, "condition map must have exactly one operator key", nil)
	}
	for op, body := range m {
		switch op {
		case "always_true":
			return condition.AlwaysTrue(), nil
		case "equals":
			return withFieldValue(body, condition.Equals)
		case "not_equals":
			return withFieldValue(body, condition.NotEquals)
		case "gt":
			return withFieldValue(body, condition.GT)
		case "gte":
			return withFieldValue(body, condition.GTE)
		case "lt":
			return withFieldValue(body, condition.LT)
		case "lte":
			return withFieldValue(body, condition.LTE)
		case "contains":
			return withFieldValue(body, condition.Contains)
		case "starts_with":
			return withFieldString(body, condition.StartsWith)
		case "ends_with":
			return withFieldString(body, condition.EndsWith)
		case "exists":
			return withField(body, condition.Exists)
		case "is_null":
			return withField(body, condition.IsNull)
		case "regex":
			return withFieldString(body, condition.Regex)
		case "between":
			return buildBetween(body)
		case "in":
			return buildInList(body, condition.In)
		case "not_in":
			return buildInList(body, condition.NotIn)
		case "and":
			return buildCombinator(body, condition.And)
		case "or":
			return buildCombinator(body, condition.Or)
		case "not":
			children, err := asConditionList(body)
			if err != nil {
				return nil, err
			}
			if len(children) != 1 {
				return nil, newLoadError(CodeMalformedDocument, "'not' requires exactly one nested condition", nil)
			}
			return condition.Not(children[0])
		default:
			return nil, newLoadError(CodeMalformedDocument, fmt.Sprintf("unknown condition operator %q", op), nil)
		}
	}
	panic("unreachable")
}

func fieldValueOf(body any) (string, any, error) {
	m, ok := asStringMap(body)
	if !ok {
		return "", nil, newLoadError(CodeMalformedDocument, "operator body must be a map with 'field' and 'value'", nil)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return "", nil, newLoadError(CodeMalformedDocument, "operator body missing 'field'", nil)
	}
	return field, m["value"], nil
}

func withFieldValue(body any, ctor func(string, any) *condition.Node) (*condition.Node, error) {
	field, value, err := fieldValueOf(body)
	if err != nil {
		return nil, err
	}
	return ctor(field, value), nil
}

func withFieldString(body any, ctor func(string, string) *condition.Node) (*condition.Node, error) {
	field, value, err := fieldValueOf(body)
	if err != nil {
		return nil, err
	}
	s, _ := value.(string)
	return ctor(field, s), nil
}

func withField(body any, ctor func(string) *condition.Node) (*condition.Node, error) {
	m, ok := asStringMap(body)
	if !ok {
		return nil, newLoadError(CodeMalformedDocument, "operator body must be a map with 'field'", nil)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return nil, newLoadError(CodeMalformedDocument, "operator body missing 'field'", nil)
	}
	return ctor(field), nil
}

func buildBetween(body any) (*condition.Node, error) {
	m, ok := asStringMap(body)
	if !ok {
		return nil, newLoadError(CodeMalformedDocument, "'between' body must be a map with 'field', 'lo', 'hi'", nil)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return nil, newLoadError(CodeMalformedDocument, "'between' body missing 'field'", nil)
	}
	return condition.Between(field, m["lo"], m["hi"]), nil
}

func buildInList(body any, ctor func(string, []any) *condition.Node) (*condition.Node, error) {
	m, ok := asStringMap(body)
	if !ok {
		return nil, newLoadError(CodeMalformedDocument, "'in'/'not_in' body must be a map with 'field', 'values'", nil)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return nil, newLoadError(CodeMalformedDocument, "'in'/'not_in' body missing 'field'", nil)
	}
	values, ok := m["values"].([]any)
	if !ok {
		return nil, newLoadError(CodeMalformedDocument, "'in'/'not_in' body missing 'values' list", nil)
	}
	return ctor(field, values), nil
}

func buildCombinator(body any, ctor func(...*condition.Node) (*condition.Node, error)) (*condition.Node, error) {
	children, err := asConditionList(body)
	if err != nil {
		return nil, err
	}
	return ctor(children...)
}

func asConditionList(body any) ([]*condition.Node, error) {
	list, ok := body.([]any)
	if !ok {
		return nil, newLoadError(CodeMalformedDocument, "expected a list of nested conditions", nil)
	}
	out := make([]*condition.Node, 0, len(list))
	for _, item := range list {
		n, err := buildStructuredCondition(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func asStringMap(body any) (map[string]any, bool) {
	switch m := body.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	default:
		return nil, false
	}
}
