package condition

import (
	"strings"

	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
	"github.com/khryptorgraphics/taskgate/pkg/variables"
)

// Evaluate walks node against ctx and returns its boolean result. A missing
// field in any value-carrying comparator always yields false — this is a
// load-bearing semantic so rules over optional fields degrade gracefully
// instead of erroring.
func Evaluate(node *Node, ctx *taskcontext.Context) bool {
	if node == nil {
		return false
	}

	switch node.Kind {
	case KindAlwaysTrue:
		return true

	case KindEquals:
		return evalEquals(node.Field, node.Value, ctx)
	case KindNotEquals:
		if _, ok := variables.Resolve(node.Field, ctx); !ok {
			return false
		}
		return !evalEquals(node.Field, node.Value, ctx)

	case KindGT, KindGTE, KindLT, KindLTE:
		return evalNumericComparator(node, ctx)

	case KindBetween:
		v, ok := variables.ResolveAsFloat64(node.Field, ctx)
		if !ok {
			return false
		}
		lo, lok := variables.ResolveAsFloat64Literal(node.Lo)
		hi, hok := variables.ResolveAsFloat64Literal(node.Hi)
		if !lok || !hok {
			return false
		}
		return v >= lo && v <= hi

	case KindIn:
		return evalIn(node, ctx)
	case KindNotIn:
		if _, ok := variables.Resolve(node.Field, ctx); !ok {
			return false
		}
		return !evalIn(node, ctx)

	case KindContains:
		return evalContains(node, ctx)

	case KindRegex:
		return evalRegex(node, ctx)

	case KindStartsWith:
		s, ok := variables.ResolveAsString(node.Field, ctx)
		if !ok {
			return false
		}
		return strings.HasPrefix(s, variables.ToString(node.Value))

	case KindEndsWith:
		s, ok := variables.ResolveAsString(node.Field, ctx)
		if !ok {
			return false
		}
		return strings.HasSuffix(s, variables.ToString(node.Value))

	case KindExists:
		_, ok := variables.Resolve(node.Field, ctx)
		return ok

	case KindIsNull:
		_, ok := variables.Resolve(node.Field, ctx)
		return !ok

	case KindAnd:
		for _, child := range node.Children {
			if !Evaluate(child, ctx) {
				return false
			}
		}
		return true

	case KindOr:
		for _, child := range node.Children {
			if Evaluate(child, ctx) {
				return true
			}
		}
		return false

	case KindNot:
		if len(node.Children) != 1 {
			return false
		}
		return !Evaluate(node.Children[0], ctx)

	default:
		return false
	}
}

// evalEquals tries structural equality first, then numeric comparison, then
// falls back to string-form comparison.
func evalEquals(field string, operand any, ctx *taskcontext.Context) bool {
	v, ok := variables.Resolve(field, ctx)
	if !ok {
		return false
	}
	if v == operand {
		return true
	}
	if lf, lok := variables.ResolveAsFloat64Literal(v); lok {
		if rf, rok := variables.ResolveAsFloat64Literal(operand); rok {
			return lf == rf
		}
	}
	return variables.ToString(v) == variables.ToString(operand)
}

func evalNumericComparator(node *Node, ctx *taskcontext.Context) bool {
	lhs, lok := variables.ResolveAsFloat64(node.Field, ctx)
	if !lok {
		return false
	}
	rhs, rok := variables.ResolveAsFloat64Literal(node.Value)
	if !rok {
		return false
	}
	switch node.Kind {
	case KindGT:
		return lhs > rhs
	case KindGTE:
		return lhs >= rhs
	case KindLT:
		return lhs < rhs
	case KindLTE:
		return lhs <= rhs
	default:
		return false
	}
}

func evalIn(node *Node, ctx *taskcontext.Context) bool {
	if _, ok := variables.Resolve(node.Field, ctx); !ok {
		return false
	}
	for _, want := range node.Values {
		if evalEquals(node.Field, want, ctx) {
			return true
		}
	}
	return false
}

func evalContains(node *Node, ctx *taskcontext.Context) bool {
	v, ok := variables.Resolve(node.Field, ctx)
	if !ok {
		return false
	}
	switch seq := v.(type) {
	case []any:
		for _, elem := range seq {
			if elem == node.Value {
				return true
			}
			if variables.ToString(elem) == variables.ToString(node.Value) {
				return true
			}
		}
		return false
	case string:
		return strings.Contains(seq, variables.ToString(node.Value))
	default:
		return false
	}
}

func evalRegex(node *Node, ctx *taskcontext.Context) bool {
	s, ok := variables.ResolveAsString(node.Field, ctx)
	if !ok {
		return false
	}
	re, err := node.regex()
	if err != nil {
		return false
	}
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
