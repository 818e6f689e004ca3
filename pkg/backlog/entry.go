// Package backlog implements the per-executor priority backlog and its
// drainer loop: when admission is deferred, a task waits in a min-heap
// ordered by PriorityKey until the executor's TPS gate has room.
package backlog

import (
	"errors"

	"github.com/khryptorgraphics/taskgate/pkg/prioritytree"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// ErrFull is returned by Enqueue when the backlog is at its bounded
// capacity.
var ErrFull = errors.New("backlog: at capacity")

// Runnable is the unit of work a backlog entry eventually dispatches to the
// execution substrate.
type Runnable func()

// Entry is one deferred task: the runnable to dispatch, its identity, the
// executor it targets, its priority key, and the context captured at
// submission time so the drainer can re-run admission using the executor's
// identifierField.
type Entry struct {
	Runnable   Runnable
	TaskID     string
	ExecutorID string
	Key        prioritytree.PriorityKey
	Context    *taskcontext.Context

	index int // heap bookkeeping; see heap.go
}
