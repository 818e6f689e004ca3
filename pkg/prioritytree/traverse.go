package prioritytree

import (
	"github.com/khryptorgraphics/taskgate/pkg/condition"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// MatchedStep is one (name, branchIndex) pair on a matched root-to-leaf
// path; branchIndex is the 1-based position of the node among its siblings.
type MatchedStep struct {
	Name        string
	BranchIndex int
}

// Match is the result of a successful traversal: the full root-to-leaf
// path plus the matched leaf's routing/sort directive.
type Match struct {
	Path     []MatchedStep
	SortBy   *SortBy
	Executor string
}

// Traverse walks roots against ctx and returns the first fully-matching
// root-to-leaf path. A node that matches but whose subtree yields no leaf
// backtracks to the next sibling rather than producing a partial match —
// this is the traversal's key correctness property.
func Traverse(roots []*Node, ctx *taskcontext.Context) (*Match, bool) {
	return traverseLevel(roots, ctx, 1)
}

func traverseLevel(nodes []*Node, ctx *taskcontext.Context, depth int) (*Match, bool) {
	if depth > MaxDepth {
		return nil, false
	}
	for i, n := range nodes {
		branchIndex := i + 1
		if !condition.Evaluate(n.Condition, ctx) {
			continue
		}

		if n.IsLeaf() {
			return &Match{
				Path:     []MatchedStep{{Name: n.Name, BranchIndex: branchIndex}},
				SortBy:   n.SortBy,
				Executor: n.Executor,
			}, true
		}

		sub, ok := traverseLevel(n.Children, ctx, depth+1)
		if !ok {
			// Matches but yields no leaf in its subtree: backtrack, try
			// the next sibling at this level.
			continue
		}
		path := append([]MatchedStep{{Name: n.Name, BranchIndex: branchIndex}}, sub.Path...)
		return &Match{Path: path, SortBy: sub.SortBy, Executor: sub.Executor}, true
	}
	return nil, false
}
