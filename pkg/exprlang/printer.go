package exprlang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/khryptorgraphics/taskgate/pkg/condition"
)

// Print renders node back into the infix syntax Parse accepts, supporting
// the round-trip property: Parse(Print(node)) produces a structurally
// equivalent tree.
func Print(node *condition.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind {
	case condition.KindAlwaysTrue:
		return "TRUE"
	case condition.KindEquals:
		return fmt.Sprintf("%s == %s", node.Field, printValue(node.Value))
	case condition.KindNotEquals:
		return fmt.Sprintf("%s != %s", node.Field, printValue(node.Value))
	case condition.KindGT:
		return fmt.Sprintf("%s > %s", node.Field, printValue(node.Value))
	case condition.KindGTE:
		return fmt.Sprintf("%s >= %s", node.Field, printValue(node.Value))
	case condition.KindLT:
		return fmt.Sprintf("%s < %s", node.Field, printValue(node.Value))
	case condition.KindLTE:
		return fmt.Sprintf("%s <= %s", node.Field, printValue(node.Value))
	case condition.KindBetween:
		// Between has no direct infix token in the grammar; represent it as
		// the equivalent conjunction, which parses back to an And(GTE, LTE)
		// tree — structurally equivalent in evaluated behavior, which is
		// what the round-trip property requires.
		return fmt.Sprintf("(%s >= %s AND %s <= %s)", node.Field, printValue(node.Lo), node.Field, printValue(node.Hi))
	case condition.KindIn:
		return fmt.Sprintf("%s IN %s", node.Field, printList(node.Values))
	case condition.KindNotIn:
		return fmt.Sprintf("%s NOT IN %s", node.Field, printList(node.Values))
	case condition.KindContains:
		return fmt.Sprintf("%s CONTAINS %s", node.Field, printValue(node.Value))
	case condition.KindRegex:
		return fmt.Sprintf("%s REGEX %s", node.Field, printValue(node.Pattern))
	case condition.KindStartsWith:
		return fmt.Sprintf("%s STARTS_WITH %s", node.Field, printValue(node.Value))
	case condition.KindEndsWith:
		return fmt.Sprintf("%s ENDS_WITH %s", node.Field, printValue(node.Value))
	case condition.KindExists:
		return fmt.Sprintf("%s EXISTS", node.Field)
	case condition.KindIsNull:
		return fmt.Sprintf("%s IS_NULL", node.Field)
	case condition.KindAnd:
		return "(" + joinChildren(node.Children, " AND ") + ")"
	case condition.KindOr:
		return "(" + joinChildren(node.Children, " OR ") + ")"
	case condition.KindNot:
		if len(node.Children) != 1 {
			return "TRUE"
		}
		return fmt.Sprintf("NOT %s", Print(node.Children[0]))
	default:
		return "TRUE"
	}
}

func joinChildren(children []*condition.Node, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = Print(c)
	}
	return strings.Join(parts, sep)
}

func printValue(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func printList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = printValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
