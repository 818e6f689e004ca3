package config

import (
	"errors"
	"fmt"

	"github.com/khryptorgraphics/taskgate/pkg/dispatch"
	"github.com/khryptorgraphics/taskgate/pkg/executor"
	"github.com/khryptorgraphics/taskgate/pkg/prioritytree"
)

// Build validates doc and compiles it into the executor hierarchy and
// priority-tree matcher the dispatch façade needs. Every failure here is a
// configuration error (spec §7): fatal at construction.
func Build(doc *Document) (*executor.Hierarchy, dispatch.Matcher, error) {
	if doc.Pool.SyntaxUsed != SyntaxConditionTree && doc.Pool.SyntaxUsed != SyntaxConditionExpr {
		return nil, nil, newLoadError(CodeSyntaxMismatch, fmt.Sprintf("unknown syntax-used %q", doc.Pool.SyntaxUsed), nil)
	}

	switch doc.Pool.PriorityStrategy.Type {
	case "", StrategyFIFO:
		// FIFO is the only implemented strategy; an empty value defaults to it.
	case StrategyTimeBased, StrategyBucketBased:
		return nil, nil, newLoadError(CodeUnsupportedStrategy,
			fmt.Sprintf("priority-strategy %q is recognized but not implemented", doc.Pool.PriorityStrategy.Type), nil)
	default:
		return nil, nil, newLoadError(CodeUnsupportedStrategy,
			fmt.Sprintf("unknown priority-strategy %q", doc.Pool.PriorityStrategy.Type), nil)
	}

	hierarchy, err := buildHierarchy(doc.Pool.Adapters.Executors)
	if err != nil {
		return nil, nil, err
	}

	matcher, err := buildMatcher(doc.Pool.SyntaxUsed, doc.Pool.PriorityTree, hierarchy)
	if err != nil {
		return nil, nil, err
	}

	return hierarchy, matcher, nil
}

func buildHierarchy(executors []Executor) (*executor.Hierarchy, error) {
	specs := make([]executor.Spec, 0, len(executors))
	for _, e := range executors {
		specs = append(specs, executor.Spec{
			ID:              e.ID,
			Parent:          e.Parent,
			TPSLimit:        e.TPS,
			QueueCapacity:   e.QueueCapacity,
			IdentifierField: e.IdentifierField,
		})
	}

	h, err := executor.Build(specs)
	if err != nil {
		switch {
		case errors.Is(err, executor.ErrCycleDetected):
			return nil, newLoadError(CodeCycleDetected, err.Error(), err)
		case errors.Is(err, executor.ErrChildTPSExceedsParent):
			return nil, newLoadError(CodeChildTPSExceedsParent, err.Error(), err)
		default:
			return nil, newLoadError(CodeInvalidHierarchy, err.Error(), err)
		}
	}
	return h, nil
}

func buildMatcher(syntax string, nodes []PriorityNode, h *executor.Hierarchy) (dispatch.Matcher, error) {
	if syntax == SyntaxConditionExpr {
		rules := make([]prioritytree.FlatRule, 0, len(nodes))
		for i, n := range nodes {
			if len(n.NestedLevels) > 0 {
				return nil, newLoadError(CodeSyntaxMismatch,
					fmt.Sprintf("priority-tree[%d] %q: nested-levels is disallowed in CONDITION_EXPR mode", i, n.Name), nil)
			}
			cond, err := buildCondition(syntax, n.Condition, n.ConditionExpr)
			if err != nil {
				return nil, err
			}
			execID, err := resolveLeafExecutor(n.Executor, h)
			if err != nil {
				return nil, err
			}
			rules = append(rules, prioritytree.FlatRule{
				Name:      n.Name,
				Condition: cond,
				SortBy:    convertSortBy(n.SortByField),
				Executor:  execID,
			})
		}
		return dispatch.FlatMatcher{Rules: rules}, nil
	}

	roots := make([]*prioritytree.Node, 0, len(nodes))
	for _, n := range nodes {
		node, err := buildTreeNode(n, h)
		if err != nil {
			return nil, err
		}
		roots = append(roots, node)
	}
	if err := prioritytree.ValidateDepth(roots); err != nil {
		return nil, newLoadError(CodeInvalidHierarchy, err.Error(), err)
	}
	return dispatch.TreeMatcher{Roots: roots}, nil
}

func buildTreeNode(n PriorityNode, h *executor.Hierarchy) (*prioritytree.Node, error) {
	cond, err := buildCondition(SyntaxConditionTree, n.Condition, n.ConditionExpr)
	if err != nil {
		return nil, err
	}

	node := &prioritytree.Node{
		Name:      n.Name,
		Condition: cond,
	}

	if len(n.NestedLevels) > 0 {
		children := make([]*prioritytree.Node, 0, len(n.NestedLevels))
		for _, child := range n.NestedLevels {
			childNode, err := buildTreeNode(child, h)
			if err != nil {
				return nil, err
			}
			children = append(children, childNode)
		}
		node.Children = children
		return node, nil
	}

	execID, err := resolveLeafExecutor(n.Executor, h)
	if err != nil {
		return nil, err
	}
	node.SortBy = convertSortBy(n.SortByField)
	node.Executor = execID
	return node, nil
}

// resolveLeafExecutor defaults an unset leaf executor to the hierarchy's
// root, per SPEC_FULL §E decision 3, and rejects references to executors
// that don't exist in adapters.executors[].
func resolveLeafExecutor(id string, h *executor.Hierarchy) (string, error) {
	if id == "" {
		return h.RootID(), nil
	}
	if !h.Exists(id) {
		return "", newLoadError(CodeUnknownReference, fmt.Sprintf("priority-tree leaf references unknown executor %q", id), nil)
	}
	return id, nil
}

func convertSortBy(sb *SortBy) *prioritytree.SortBy {
	if sb == nil || sb.Field == "" {
		return nil
	}
	dir := prioritytree.Asc
	if sb.Direction == string(prioritytree.Desc) {
		dir = prioritytree.Desc
	}
	return &prioritytree.SortBy{Field: sb.Field, Direction: dir}
}
