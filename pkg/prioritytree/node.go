// Package prioritytree implements the priority tree traversal: a
// declarative tree of branch conditions that assigns each task a matched
// path, which the path vector and priority key are derived from.
package prioritytree

import (
	"fmt"

	"github.com/khryptorgraphics/taskgate/pkg/condition"
)

// MaxDepth is the tree depth limit from the data model: depth exactly 10
// succeeds, depth 11 is rejected at load.
const MaxDepth = 10

// Direction is the sort direction on a leaf's SortBy directive.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortBy is a leaf's secondary-ordering directive.
type SortBy struct {
	Field     string
	Direction Direction
}

// Node is a single node in the priority tree. Children being empty marks a
// leaf; SortBy and Executor are only meaningful on leaves and are ignored
// on non-leaves.
type Node struct {
	Name      string
	Condition *condition.Node
	Children  []*Node
	SortBy    *SortBy
	Executor  string
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// ValidateDepth walks roots and rejects any path exceeding MaxDepth,
// matching the load-time boundary check (depth 10 succeeds, 11 fails).
func ValidateDepth(roots []*Node) error {
	for _, r := range roots {
		if err := validateDepth(r, 1); err != nil {
			return err
		}
	}
	return nil
}

func validateDepth(n *Node, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("prioritytree: depth %d exceeds maximum of %d at node %q", depth, MaxDepth, n.Name)
	}
	for _, c := range n.Children {
		if err := validateDepth(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
