// Package tpsgate implements the hierarchical TPS admission gate: a
// two-phase resolve-then-commit check across an executor's full leaf-to-root
// chain, backed by one sliding-window counter per executor.
package tpsgate

import (
	"github.com/khryptorgraphics/taskgate/pkg/executor"
	"github.com/khryptorgraphics/taskgate/pkg/slidingwindow"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
	"github.com/khryptorgraphics/taskgate/pkg/variables"

	"time"
)

// Gate holds one sliding-window counter per executor, all sharing the same
// window duration.
type Gate struct {
	hierarchy *executor.Hierarchy
	window    time.Duration
	counters  map[string]*slidingwindow.Counter
}

// New builds a Gate with one counter per executor in hierarchy, all sized
// to window (default 1000ms upstream if the caller passes 0).
func New(hierarchy *executor.Hierarchy, window time.Duration) *Gate {
	if window <= 0 {
		window = time.Second
	}
	g := &Gate{
		hierarchy: hierarchy,
		window:    window,
		counters:  make(map[string]*slidingwindow.Counter),
	}
	for _, id := range allExecutorIDs(hierarchy) {
		g.counters[id] = slidingwindow.New(window)
	}
	return g
}

// allExecutorIDs walks the hierarchy from every leaf up to the root to
// enumerate every executor id (leaves plus every ancestor).
func allExecutorIDs(h *executor.Hierarchy) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, leaf := range h.LeafIDs() {
		chain, err := h.Chain(leaf)
		if err != nil {
			continue
		}
		for _, id := range chain {
			add(id)
		}
	}
	add(h.RootID())
	return ids
}

// resolvedIdentifier picks the identifier used for TPS counting at execID:
// the configured identifierField resolved against ctx, falling back to
// ctx.TaskID if the field is unconfigured or unresolvable.
func (g *Gate) resolvedIdentifier(execID string, ctx *taskcontext.Context) string {
	field := g.hierarchy.IdentifierField(execID)
	if field == "" {
		return ctx.TaskID
	}
	s, ok := variables.ResolveAsString(field, ctx)
	if !ok {
		return ctx.TaskID
	}
	return s
}

// TryAcquire enforces admission along the entire chain leaf->root for
// execID, in two phases to avoid partial insertion: first resolve each
// level's identifier and check capacity (skipping levels where the
// identifier is already "paid for"), rejecting the whole acquire if any
// level lacks capacity; then, only if every level passed, commit by
// inserting into every level's counter.
func (g *Gate) TryAcquire(ctx *taskcontext.Context, execID string) (bool, error) {
	chain, err := g.hierarchy.Chain(execID)
	if err != nil {
		return false, err
	}

	type resolved struct {
		execID string
		id     string
	}
	plan := make([]resolved, 0, len(chain))

	for _, e := range chain {
		id := g.resolvedIdentifier(e, ctx)
		counter := g.counters[e]

		if counter.Contains(id) {
			// Already paid for at this level; nothing to check or commit.
			continue
		}

		limit := g.hierarchy.TPS(e)
		if limit > 0 && counter.Count() >= int64(limit) {
			return false, nil
		}
		plan = append(plan, resolved{execID: e, id: id})
	}

	for _, p := range plan {
		g.counters[p.execID].TryAdd(p.id)
	}
	return true, nil
}

// HasCapacity reports whether execID currently has room for at least one
// more distinct identifier.
func (g *Gate) HasCapacity(execID string) bool {
	limit := g.hierarchy.TPS(execID)
	if limit <= 0 {
		return true
	}
	counter, ok := g.counters[execID]
	if !ok {
		return false
	}
	return counter.Count() < int64(limit)
}

// AvailableCapacity returns the number of additional distinct identifiers
// execID can currently admit, or -1 for an unbounded executor.
func (g *Gate) AvailableCapacity(execID string) int64 {
	limit := g.hierarchy.TPS(execID)
	if limit <= 0 {
		return -1
	}
	counter, ok := g.counters[execID]
	if !ok {
		return 0
	}
	avail := int64(limit) - counter.Count()
	if avail < 0 {
		return 0
	}
	return avail
}

// CurrentTPS returns the current live identifier count for execID.
func (g *Gate) CurrentTPS(execID string) int64 {
	counter, ok := g.counters[execID]
	if !ok {
		return 0
	}
	return counter.Count()
}

// Release is a no-op in the common case: the sliding window expires
// identifiers autonomously. It exists for interface completeness and for
// substrates that want to proactively free a slot (e.g. a cancelled task).
func (g *Gate) Release(id, execID string) {
	if counter, ok := g.counters[execID]; ok {
		counter.Remove(id)
	}
}
