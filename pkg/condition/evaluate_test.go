package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

func ctxWith(req map[string]any) *taskcontext.Context {
	return taskcontext.New(req, nil)
}

func TestEquals_MissingFieldIsFalse(t *testing.T) {
	ctx := ctxWith(map[string]any{"region": "NORTH_AMERICA"})
	assert.False(t, Evaluate(Equals("$req.missing", "x"), ctx))
}

func TestEquals_StringAndNumeric(t *testing.T) {
	ctx := ctxWith(map[string]any{"region": "NORTH_AMERICA", "amount": 500000})
	assert.True(t, Evaluate(Equals("$req.region", "NORTH_AMERICA"), ctx))
	assert.True(t, Evaluate(Equals("$req.amount", 500000.0), ctx))
	assert.True(t, Evaluate(Equals("$req.amount", "500000"), ctx))
	assert.False(t, Evaluate(Equals("$req.region", "EUROPE"), ctx))
}

func TestNumericComparators(t *testing.T) {
	ctx := ctxWith(map[string]any{"amount": 500000})
	assert.True(t, Evaluate(GT("$req.amount", 1000), ctx))
	assert.True(t, Evaluate(GTE("$req.amount", 500000), ctx))
	assert.True(t, Evaluate(LT("$req.amount", 1000000), ctx))
	assert.True(t, Evaluate(LTE("$req.amount", 500000), ctx))
	assert.False(t, Evaluate(GT("$req.missing", 1000), ctx))
}

func TestBetween_Inclusive(t *testing.T) {
	ctx := ctxWith(map[string]any{"amount": 100})
	assert.True(t, Evaluate(Between("$req.amount", 100, 200), ctx))
	assert.True(t, Evaluate(Between("$req.amount", 0, 100), ctx))
	assert.False(t, Evaluate(Between("$req.amount", 101, 200), ctx))
}

func TestInNotIn(t *testing.T) {
	ctx := ctxWith(map[string]any{"tier": "GOLD"})
	assert.True(t, Evaluate(In("$req.tier", []any{"GOLD", "PLATINUM"}), ctx))
	assert.False(t, Evaluate(In("$req.tier", []any{"BRONZE"}), ctx))
	assert.False(t, Evaluate(NotIn("$req.tier", []any{"GOLD", "PLATINUM"}), ctx))
	assert.True(t, Evaluate(NotIn("$req.tier", []any{"BRONZE"}), ctx))

	// "NotIn on missing field returns false (consistent with missing => false)"
	missingCtx := ctxWith(map[string]any{})
	assert.False(t, Evaluate(NotIn("$req.tier", []any{"BRONZE"}), missingCtx))
}

func TestContains(t *testing.T) {
	ctx := ctxWith(map[string]any{
		"tags":    []any{"vip", "urgent"},
		"message": "hello world",
	})
	assert.True(t, Evaluate(Contains("$req.tags", "urgent"), ctx))
	assert.False(t, Evaluate(Contains("$req.tags", "missing"), ctx))
	assert.True(t, Evaluate(Contains("$req.message", "world"), ctx))
}

func TestRegexFullMatch(t *testing.T) {
	ctx := ctxWith(map[string]any{"sku": "AB-1234"})
	assert.True(t, Evaluate(Regex("$req.sku", `[A-Z]{2}-\d{4}`), ctx))
	assert.False(t, Evaluate(Regex("$req.sku", `[A-Z]{2}`), ctx)) // not a full match
}

func TestStartsEndsWith(t *testing.T) {
	ctx := ctxWith(map[string]any{"path": "/api/v1/tasks"})
	assert.True(t, Evaluate(StartsWith("$req.path", "/api"), ctx))
	assert.True(t, Evaluate(EndsWith("$req.path", "/tasks"), ctx))
	assert.False(t, Evaluate(StartsWith("$req.path", "/v2"), ctx))
}

func TestExistsIsNull(t *testing.T) {
	ctx := ctxWith(map[string]any{"present": "x"})
	assert.True(t, Evaluate(Exists("$req.present"), ctx))
	assert.False(t, Evaluate(Exists("$req.absent"), ctx))
	assert.True(t, Evaluate(IsNull("$req.absent"), ctx))
	assert.False(t, Evaluate(IsNull("$req.present"), ctx))
}

func TestAndOrNot(t *testing.T) {
	ctx := ctxWith(map[string]any{"region": "NORTH_AMERICA", "amount": 500})

	and, err := And(Equals("$req.region", "NORTH_AMERICA"), GT("$req.amount", 100))
	require.NoError(t, err)
	assert.True(t, Evaluate(and, ctx))

	or, err := Or(Equals("$req.region", "EUROPE"), GT("$req.amount", 100))
	require.NoError(t, err)
	assert.True(t, Evaluate(or, ctx))

	not, err := Not(Equals("$req.region", "EUROPE"))
	require.NoError(t, err)
	assert.True(t, Evaluate(not, ctx))
}

func TestAndOr_EmptyChildrenRejectedAtConstruction(t *testing.T) {
	_, err := And()
	assert.Error(t, err)
	_, err = Or()
	assert.Error(t, err)
	_, err = Not(nil)
	assert.Error(t, err)
}
