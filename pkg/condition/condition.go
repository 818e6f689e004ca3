// Package condition implements the structured boolean predicate language
// routing rules are built from: a single tagged variant type dispatched by
// a type switch, rather than a class per kind.
package condition

import (
	"fmt"
	"regexp"
	"sync"
)

// Kind tags a Node's variant.
type Kind string

const (
	KindAlwaysTrue  Kind = "AlwaysTrue"
	KindEquals      Kind = "Equals"
	KindNotEquals   Kind = "NotEquals"
	KindGT          Kind = "GT"
	KindGTE         Kind = "GTE"
	KindLT          Kind = "LT"
	KindLTE         Kind = "LTE"
	KindBetween     Kind = "Between"
	KindIn          Kind = "In"
	KindNotIn       Kind = "NotIn"
	KindContains    Kind = "Contains"
	KindRegex       Kind = "Regex"
	KindStartsWith  Kind = "StartsWith"
	KindEndsWith    Kind = "EndsWith"
	KindExists      Kind = "Exists"
	KindIsNull      Kind = "IsNull"
	KindAnd         Kind = "And"
	KindOr          Kind = "Or"
	KindNot         Kind = "Not"
)

// Node is a single tagged variant over every condition kind. Only the
// fields meaningful for Kind are populated; see the package-level
// constructors for the invariants each kind carries.
type Node struct {
	Kind Kind

	// Field is the $req./$ctx./$sys. reference for value-carrying variants.
	Field string

	// Value holds the single operand for Equals/NotEquals/GT/.../Contains.
	Value any

	// Lo/Hi hold the inclusive bounds for Between.
	Lo, Hi any

	// Values holds the operand list for In/NotIn.
	Values []any

	// Pattern holds the source regex for Regex (compiled lazily and cached).
	Pattern string

	// Children holds the operands of And/Or, or the single operand of Not.
	Children []*Node

	compiled *regexp.Regexp
	once     sync.Once
}

// New constructors build a Node for each kind. And, Or and Not enforce the
// data model's child-count invariants at construction; the value-carrying
// constructors store their operands without validating them.

func AlwaysTrue() *Node { return &Node{Kind: KindAlwaysTrue} }

func Equals(field string, value any) *Node    { return &Node{Kind: KindEquals, Field: field, Value: value} }
func NotEquals(field string, value any) *Node { return &Node{Kind: KindNotEquals, Field: field, Value: value} }
func GT(field string, value any) *Node        { return &Node{Kind: KindGT, Field: field, Value: value} }
func GTE(field string, value any) *Node       { return &Node{Kind: KindGTE, Field: field, Value: value} }
func LT(field string, value any) *Node        { return &Node{Kind: KindLT, Field: field, Value: value} }
func LTE(field string, value any) *Node       { return &Node{Kind: KindLTE, Field: field, Value: value} }

func Between(field string, lo, hi any) *Node {
	return &Node{Kind: KindBetween, Field: field, Lo: lo, Hi: hi}
}

func In(field string, values []any) *Node    { return &Node{Kind: KindIn, Field: field, Values: values} }
func NotIn(field string, values []any) *Node { return &Node{Kind: KindNotIn, Field: field, Values: values} }
func Contains(field string, value any) *Node { return &Node{Kind: KindContains, Field: field, Value: value} }

func Regex(field, pattern string) *Node {
	return &Node{Kind: KindRegex, Field: field, Pattern: pattern}
}

func StartsWith(field, s string) *Node { return &Node{Kind: KindStartsWith, Field: field, Value: s} }
func EndsWith(field, s string) *Node   { return &Node{Kind: KindEndsWith, Field: field, Value: s} }
func Exists(field string) *Node        { return &Node{Kind: KindExists, Field: field} }
func IsNull(field string) *Node        { return &Node{Kind: KindIsNull, Field: field} }

// And requires at least one child, per the data model invariant.
func And(children ...*Node) (*Node, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("condition: And requires at least one child")
	}
	return &Node{Kind: KindAnd, Children: children}, nil
}

// Or requires at least one child, per the data model invariant.
func Or(children ...*Node) (*Node, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("condition: Or requires at least one child")
	}
	return &Node{Kind: KindOr, Children: children}, nil
}

// Not requires exactly one child.
func Not(child *Node) (*Node, error) {
	if child == nil {
		return nil, fmt.Errorf("condition: Not requires exactly one child")
	}
	return &Node{Kind: KindNot, Children: []*Node{child}}, nil
}

// regex lazily compiles and caches Pattern. Compilation happens once per
// Node regardless of how many times Evaluate is called against it.
func (n *Node) regex() (*regexp.Regexp, error) {
	var err error
	n.once.Do(func() {
		n.compiled, err = regexp.Compile(n.Pattern)
	})
	if n.compiled == nil && err == nil {
		// once.Do already ran and failed on a previous call; recompile to
		// surface the error again rather than caching a permanent nil.
		return regexp.Compile(n.Pattern)
	}
	return n.compiled, err
}
