package dispatch

import (
	"github.com/khryptorgraphics/taskgate/pkg/prioritytree"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// Matcher abstracts the two priority-tree syntaxes (CONDITION_TREE,
// CONDITION_EXPR) behind one evaluation call, so the façade does not care
// which was configured (spec §6, "the chosen syntax applies uniformly").
type Matcher interface {
	Match(ctx *taskcontext.Context) (*prioritytree.Match, bool)
}

// TreeMatcher wraps a CONDITION_TREE root list.
type TreeMatcher struct{ Roots []*prioritytree.Node }

func (m TreeMatcher) Match(ctx *taskcontext.Context) (*prioritytree.Match, bool) {
	return prioritytree.Traverse(m.Roots, ctx)
}

// FlatMatcher wraps a CONDITION_EXPR flat rule list.
type FlatMatcher struct{ Rules []prioritytree.FlatRule }

func (m FlatMatcher) Match(ctx *taskcontext.Context) (*prioritytree.Match, bool) {
	return prioritytree.TraverseFlat(m.Rules, ctx)
}
