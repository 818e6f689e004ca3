// Package executor validates and exposes the executor hierarchy: a
// parent/child DAG of TPS-budgeted admission points with exactly one root.
package executor

import "fmt"

// Spec describes one executor node as read from configuration.
type Spec struct {
	ID              string
	Parent          string // empty for the root
	TPSLimit        int    // 0 => unbounded
	QueueCapacity   int    // 0 => unbounded
	IdentifierField string // $req./$ctx./$sys. reference; falls back to taskId if empty/unresolvable
}

// Hierarchy is the validated executor DAG built from a list of Specs.
type Hierarchy struct {
	specs    map[string]*Spec
	children map[string][]string
	rootID   string
}

// Build validates specs per spec §4.7, in order, aborting on the first
// violation: unique ids, every named parent exists, exactly one root, no
// cycles, and monotonic TPS (child <= parent when both bounded).
func Build(specs []Spec) (*Hierarchy, error) {
	h := &Hierarchy{
		specs:    make(map[string]*Spec),
		children: make(map[string][]string),
	}

	for i := range specs {
		s := specs[i]
		if s.ID == "" {
			return nil, fmt.Errorf("executor: spec at index %d has empty id", i)
		}
		if _, dup := h.specs[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate executor id %q", ErrInvalidHierarchy, s.ID)
		}
		h.specs[s.ID] = &specs[i]
	}

	var roots []string
	for id, s := range h.specs {
		if s.Parent == "" {
			roots = append(roots, id)
			continue
		}
		if _, ok := h.specs[s.Parent]; !ok {
			return nil, fmt.Errorf("%w: executor %q references unknown parent %q", ErrInvalidHierarchy, id, s.Parent)
		}
		h.children[s.Parent] = append(h.children[s.Parent], id)
	}

	if len(roots) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one root executor, found %d", ErrInvalidHierarchy, len(roots))
	}
	h.rootID = roots[0]

	if err := h.detectCycles(); err != nil {
		return nil, err
	}

	if err := h.validateTPSMonotonicity(); err != nil {
		return nil, err
	}

	return h, nil
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

func (h *Hierarchy) detectCycles() error {
	colors := make(map[string]color, len(h.specs))
	for id := range h.specs {
		colors[id] = white
	}

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = gray
		for _, child := range h.children[id] {
			switch colors[child] {
			case gray:
				return fmt.Errorf("%w: cycle detected at executor %q", ErrCycleDetected, child)
			case white:
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		colors[id] = black
		return nil
	}

	for id := range h.specs {
		if colors[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Hierarchy) validateTPSMonotonicity() error {
	for id, s := range h.specs {
		if s.Parent == "" || s.TPSLimit <= 0 {
			continue
		}
		parent := h.specs[s.Parent]
		if parent.TPSLimit > 0 && s.TPSLimit > parent.TPSLimit {
			return fmt.Errorf("%w: executor %q tps=%d exceeds parent %q tps=%d",
				ErrChildTPSExceedsParent, id, s.TPSLimit, parent.ID, parent.TPSLimit)
		}
	}
	return nil
}

// Chain returns [execId, parent, ..., root], inclusive of execId and root.
func (h *Hierarchy) Chain(execID string) ([]string, error) {
	if _, ok := h.specs[execID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, execID)
	}
	var chain []string
	for id := execID; id != ""; id = h.specs[id].Parent {
		chain = append(chain, id)
	}
	return chain, nil
}

// Children returns the direct children of execID.
func (h *Hierarchy) Children(execID string) []string { return h.children[execID] }

// TPS returns the TPS limit of execID (0 => unbounded).
func (h *Hierarchy) TPS(execID string) int {
	if s, ok := h.specs[execID]; ok {
		return s.TPSLimit
	}
	return 0
}

// QueueCapacity returns the backlog capacity of execID (0 => unbounded).
func (h *Hierarchy) QueueCapacity(execID string) int {
	if s, ok := h.specs[execID]; ok {
		return s.QueueCapacity
	}
	return 0
}

// IdentifierField returns the configured identifier field of execID, or
// empty if unconfigured (callers fall back to taskId).
func (h *Hierarchy) IdentifierField(execID string) string {
	if s, ok := h.specs[execID]; ok {
		return s.IdentifierField
	}
	return ""
}

// RootID returns the hierarchy's single root executor id.
func (h *Hierarchy) RootID() string { return h.rootID }

// LeafIDs returns every executor id that has no children.
func (h *Hierarchy) LeafIDs() []string {
	var leaves []string
	for id := range h.specs {
		if len(h.children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Exists reports whether execID is a known executor.
func (h *Hierarchy) Exists(execID string) bool {
	_, ok := h.specs[execID]
	return ok
}
