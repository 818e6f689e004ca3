package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/taskgate/pkg/condition"
	"github.com/khryptorgraphics/taskgate/pkg/executor"
	"github.com/khryptorgraphics/taskgate/pkg/prioritytree"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// syncDispatcher runs every runnable inline on the calling goroutine, making
// tests deterministic without a real worker pool.
type syncDispatcher struct{}

func (syncDispatcher) Dispatch(fn func()) { fn() }

// goroutineDispatcher runs each runnable on its own goroutine, the shape the
// real execution substrate uses.
type goroutineDispatcher struct{ wg *sync.WaitGroup }

func (d goroutineDispatcher) Dispatch(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

func buildTestHierarchy(t *testing.T) *executor.Hierarchy {
	t.Helper()
	h, err := executor.Build([]executor.Spec{
		{ID: "root", TPSLimit: 0, QueueCapacity: 10, IdentifierField: "$req.id"},
		{ID: "vip", Parent: "root", TPSLimit: 2, QueueCapacity: 10, IdentifierField: "$req.id"},
	})
	require.NoError(t, err)
	return h
}

func vipMatcher() Matcher {
	return FlatMatcher{Rules: []prioritytree.FlatRule{
		{Name: "vip-rule", Condition: condition.AlwaysTrue(), Executor: "vip"},
	}}
}

func TestPool_SubmitImmediateAdmission(t *testing.T) {
	h := buildTestHierarchy(t)
	pool := NewPool(Options{Hierarchy: h, Matcher: vipMatcher(), Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})

	var ran int32
	ctx := taskcontext.New(map[string]any{"id": "a"}, nil)
	err := pool.Submit(ctx, func() { atomic.AddInt32(&ran, 1) })
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))

	stats := pool.Stats()
	assert.EqualValues(t, 1, stats.Submitted)
	assert.EqualValues(t, 1, stats.Executed)
}

func TestPool_BacklogsWhenTPSExhausted(t *testing.T) {
	h := buildTestHierarchy(t)
	pool := NewPool(Options{Hierarchy: h, Matcher: vipMatcher(), Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})

	// Exhaust vip's tps=2 budget with two distinct identifiers.
	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "a"}, nil), func() {}))
	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "b"}, nil), func() {}))

	var ran int32
	err := pool.Submit(taskcontext.New(map[string]any{"id": "c"}, nil), func() { atomic.AddInt32(&ran, 1) })
	require.NoError(t, err) // enqueue succeeded, not rejected
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))
	assert.EqualValues(t, 1, pool.GetQueueSize())
}

func TestPool_BacklogFullRejects(t *testing.T) {
	h, err := executor.Build([]executor.Spec{
		{ID: "root", TPSLimit: 1, QueueCapacity: 1, IdentifierField: "$req.id"},
	})
	require.NoError(t, err)
	pool := NewPool(Options{Hierarchy: h, Matcher: FlatMatcher{Rules: []prioritytree.FlatRule{
		{Name: "r", Condition: condition.AlwaysTrue(), Executor: "root"},
	}}, Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})

	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "a"}, nil), func() {}))
	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "b"}, nil), func() {}))

	rejErr := pool.Submit(taskcontext.New(map[string]any{"id": "c"}, nil), func() {})
	require.Error(t, rejErr)
	var rs *RejectedSubmission
	require.ErrorAs(t, rejErr, &rs)
	assert.Equal(t, ReasonBacklogFull, rs.Reason)
}

func TestPool_UnknownExecutorRejects(t *testing.T) {
	h := buildTestHierarchy(t)
	pool := NewPool(Options{Hierarchy: h, Matcher: FlatMatcher{Rules: []prioritytree.FlatRule{
		{Name: "ghost-rule", Condition: condition.AlwaysTrue(), Executor: "ghost"},
	}}, Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})

	err := pool.Submit(taskcontext.New(nil, nil), func() {})
	require.Error(t, err)
	var rs *RejectedSubmission
	require.ErrorAs(t, err, &rs)
	assert.Equal(t, ReasonUnknownExecutor, rs.Reason)
}

func TestPool_SubmitAfterShutdownRejects(t *testing.T) {
	h := buildTestHierarchy(t)
	pool := NewPool(Options{Hierarchy: h, Matcher: vipMatcher(), Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})
	pool.Shutdown()

	err := pool.Submit(taskcontext.New(map[string]any{"id": "a"}, nil), func() {})
	require.Error(t, err)
	var rs *RejectedSubmission
	require.ErrorAs(t, err, &rs)
	assert.Equal(t, ReasonShutdown, rs.Reason)
}

func TestPool_SubmitFuncObservesResult(t *testing.T) {
	h := buildTestHierarchy(t)
	pool := NewPool(Options{Hierarchy: h, Matcher: vipMatcher(), Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})

	future, err := pool.SubmitFunc(taskcontext.New(map[string]any{"id": "a"}, nil), func() (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	result, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestPool_DrainerPromotesBacklogWhenCapacityFrees(t *testing.T) {
	h := buildTestHierarchy(t)
	var wg sync.WaitGroup
	pool := NewPool(Options{Hierarchy: h, Matcher: vipMatcher(), Dispatcher: goroutineDispatcher{wg: &wg}, Logger: zerolog.Nop()})
	pool.Start()
	defer pool.ShutdownNow()

	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "a"}, nil), func() {}))
	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "b"}, nil), func() {}))

	var ran int32
	require.NoError(t, pool.Submit(taskcontext.New(map[string]any{"id": "c"}, nil), func() { atomic.AddInt32(&ran, 1) }))
	assert.EqualValues(t, 1, pool.GetQueueSize())

	// The window is 1s; give the backlogged identifier's window time to
	// roll over so the drainer's re-acquire succeeds, then poll briefly.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&ran) == 1 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}
