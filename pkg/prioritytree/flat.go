package prioritytree

import (
	"github.com/khryptorgraphics/taskgate/pkg/condition"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// FlatRule is one entry of a CONDITION_EXPR rule list: a flat top-level
// sequence evaluated in declared order.
type FlatRule struct {
	Name      string
	Condition *condition.Node
	SortBy    *SortBy
	Executor  string
}

// TraverseFlat evaluates rules in order and returns the first whose
// condition is true. The matched-path vector for a flat match has a single
// entry: its 1-based index in the rule list.
func TraverseFlat(rules []FlatRule, ctx *taskcontext.Context) (*Match, bool) {
	for i, rule := range rules {
		if !condition.Evaluate(rule.Condition, ctx) {
			continue
		}
		return &Match{
			Path:     []MatchedStep{{Name: rule.Name, BranchIndex: i + 1}},
			SortBy:   rule.SortBy,
			Executor: rule.Executor,
		}, true
	}
	return nil, false
}
