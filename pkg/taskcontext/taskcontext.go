// Package taskcontext defines the immutable value captured at submission
// time and consumed by the condition, priority, and gate layers.
package taskcontext

import (
	"time"

	"github.com/google/uuid"
)

// Context is the immutable task context described by the task admission
// data model: parsed request attributes plus ambient metadata. Once built
// it is never mutated; callers that need to change a value build a new one.
type Context struct {
	TaskID        string
	SubmittedAt   int64 // wall-clock milliseconds
	CorrelationID string

	request Values
	context Values
	system  Values
}

// Values is a flattened string-keyed map of resolved values. Nested maps
// passed to New are flattened into dot-joined keys before storage.
type Values map[string]any

// Option customizes a Context at construction time.
type Option func(*Context)

// WithTaskID overrides the auto-generated task id.
func WithTaskID(id string) Option {
	return func(c *Context) { c.TaskID = id }
}

// WithCorrelationID attaches a correlation id propagated from an upstream
// caller.
func WithCorrelationID(id string) Option {
	return func(c *Context) { c.CorrelationID = id }
}

// WithSubmittedAt overrides the auto-captured submission timestamp, mostly
// useful for deterministic tests.
func WithSubmittedAt(ms int64) Option {
	return func(c *Context) { c.SubmittedAt = ms }
}

// New builds a Context from two of the three disjoint maps described by the
// data model, request (user payload) and ctx (opaque side-channel), both
// flattened, plus any caller-supplied options. The third map, system
// (taskId, submittedAt, time.now, correlationId), is populated automatically.
func New(request, ctx map[string]any, opts ...Option) *Context {
	c := &Context{
		TaskID:      uuid.NewString(),
		SubmittedAt: time.Now().UnixMilli(),
		request:     flatten(request),
		context:     flatten(ctx),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.system = Values{
		"taskId":        c.TaskID,
		"submittedAt":   c.SubmittedAt,
		"time.now":      time.Now().UnixMilli(),
		"correlationId": c.CorrelationID,
	}

	return c
}

// Request returns the flattened request payload map.
func (c *Context) Request() Values { return c.request }

// Ctx returns the opaque context side-channel map.
func (c *Context) Ctx() Values { return c.context }

// System returns the auto-populated system map.
func (c *Context) System() Values { return c.system }

// flatten recursively joins nested map keys with ".", matching the "request
// (from the user-supplied structured payload, with nested objects flattened
// to dot-joined keys)" rule of the data model.
func flatten(m map[string]any) Values {
	out := make(Values)
	flattenInto(out, "", m)
	return out
}

func flattenInto(out Values, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, key, val)
		default:
			out[key] = v
		}
	}
}
