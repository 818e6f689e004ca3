package prioritytree

import (
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
	"github.com/khryptorgraphics/taskgate/pkg/variables"
)

// PriorityKey is the total order over (path vector, sort value, submission
// time) used everywhere downstream. sortValue has already absorbed
// direction (DESC is stored negated), so comparison is always "smaller is
// higher priority".
type PriorityKey struct {
	Path        PathVector
	SortValue   int64
	SubmittedAt int64
}

// Compute builds the PriorityKey for a match (or the unmatched sentinel)
// against ctx, per spec §4.5.
func Compute(match *Match, matched bool, ctx *taskcontext.Context) PriorityKey {
	if !matched {
		return PriorityKey{
			Path:        Unmatched,
			SortValue:   ctx.SubmittedAt,
			SubmittedAt: ctx.SubmittedAt,
		}
	}

	return PriorityKey{
		Path:        NewPathVector(match.Path),
		SortValue:   sortValue(match.SortBy, ctx),
		SubmittedAt: ctx.SubmittedAt,
	}
}

func sortValue(sb *SortBy, ctx *taskcontext.Context) int64 {
	if sb == nil || sb.Field == "" {
		return ctx.SubmittedAt
	}
	v, ok := variables.ResolveAsInt64(sb.Field, ctx)
	if !ok {
		v = ctx.SubmittedAt
	}
	if sb.Direction == Desc {
		return -v
	}
	return v
}

// Compare returns -1, 0, or 1 as a sorts before, equal to, or after b.
// Ordering: path vector, then sort value, then submission time (older
// wins).
func (a PriorityKey) Compare(b PriorityKey) int {
	if c := a.Path.Compare(b.Path); c != 0 {
		return c
	}
	if a.SortValue != b.SortValue {
		if a.SortValue < b.SortValue {
			return -1
		}
		return 1
	}
	if a.SubmittedAt != b.SubmittedAt {
		if a.SubmittedAt < b.SubmittedAt {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether a is strictly higher priority than b.
func (a PriorityKey) Less(b PriorityKey) bool { return a.Compare(b) < 0 }
