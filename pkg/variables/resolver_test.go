package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

func TestResolve_Prefixes(t *testing.T) {
	ctx := taskcontext.New(
		map[string]any{"amount": 500000, "region": "NORTH_AMERICA"},
		map[string]any{"sessionId": "abc"},
		taskcontext.WithTaskID("task-1"),
		taskcontext.WithCorrelationID("corr-1"),
	)

	v, ok := Resolve("$req.amount", ctx)
	require.True(t, ok)
	assert.EqualValues(t, 500000, v)

	v, ok = Resolve("$ctx.sessionId", ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	v, ok = Resolve("$sys.taskId", ctx)
	require.True(t, ok)
	assert.Equal(t, "task-1", v)

	_, ok = Resolve("$req.missing", ctx)
	assert.False(t, ok)

	_, ok = Resolve("unprefixed", ctx)
	assert.False(t, ok)
}

func TestResolveAsFloat64_Coercion(t *testing.T) {
	ctx := taskcontext.New(map[string]any{
		"amountInt":    42,
		"amountString": "3.5",
		"amountBad":    "not-a-number",
		"flag":         true,
	}, nil)

	f, ok := ResolveAsFloat64("$req.amountInt", ctx)
	require.True(t, ok)
	assert.Equal(t, 42.0, f)

	f, ok = ResolveAsFloat64("$req.amountString", ctx)
	require.True(t, ok)
	assert.Equal(t, 3.5, f)

	_, ok = ResolveAsFloat64("$req.amountBad", ctx)
	assert.False(t, ok)

	f, ok = ResolveAsFloat64("$req.flag", ctx)
	require.True(t, ok)
	assert.Equal(t, 1.0, f)

	_, ok = ResolveAsFloat64("$req.missing", ctx)
	assert.False(t, ok)
}

func TestFlattenNestedRequest(t *testing.T) {
	ctx := taskcontext.New(map[string]any{
		"customer": map[string]any{
			"tier": "PLATINUM",
			"address": map[string]any{
				"country": "US",
			},
		},
	}, nil)

	v, ok := Resolve("$req.customer.tier", ctx)
	require.True(t, ok)
	assert.Equal(t, "PLATINUM", v)

	v, ok = Resolve("$req.customer.address.country", ctx)
	require.True(t, ok)
	assert.Equal(t, "US", v)
}
