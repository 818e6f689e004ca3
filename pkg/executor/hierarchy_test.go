package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mainVipBulk(t *testing.T) *Hierarchy {
	t.Helper()
	h, err := Build([]Spec{
		{ID: "main", TPSLimit: 1000, QueueCapacity: 5000, IdentifierField: "$req.requestId"},
		{ID: "vip", Parent: "main", TPSLimit: 400, IdentifierField: "$req.requestId"},
		{ID: "bulk", Parent: "main", TPSLimit: 200, IdentifierField: "$req.requestId"},
	})
	require.NoError(t, err)
	return h
}

func TestBuild_Chain(t *testing.T) {
	h := mainVipBulk(t)
	chain, err := h.Chain("vip")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "main"}, chain)
}

func TestBuild_TwoRootsFails(t *testing.T) {
	_, err := Build([]Spec{
		{ID: "a"},
		{ID: "b"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHierarchy)
}

func TestBuild_UnknownParentFails(t *testing.T) {
	_, err := Build([]Spec{
		{ID: "root"},
		{ID: "child", Parent: "missing"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHierarchy)
}

func TestBuild_CycleDetected(t *testing.T) {
	// root exists but a/b form a cycle off to the side, unreachable from
	// root's children map but still present in specs — cycle check walks
	// all nodes regardless of reachability from the chosen root.
	_, err := Build([]Spec{
		{ID: "root"},
		{ID: "a", Parent: "b"},
		{ID: "b", Parent: "a"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestBuild_ChildTPSExceedsParentFails(t *testing.T) {
	_, err := Build([]Spec{
		{ID: "root", TPSLimit: 100},
		{ID: "child", Parent: "root", TPSLimit: 200},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChildTPSExceedsParent)
}

func TestBuild_UnboundedParentAllowsAnyChildTPS(t *testing.T) {
	_, err := Build([]Spec{
		{ID: "root", TPSLimit: 0},
		{ID: "child", Parent: "root", TPSLimit: 99999},
	})
	require.NoError(t, err)
}

func TestChain_UnknownExecutor(t *testing.T) {
	h := mainVipBulk(t)
	_, err := h.Chain("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownExecutor)
}

func TestLeafIDs(t *testing.T) {
	h := mainVipBulk(t)
	leaves := h.LeafIDs()
	assert.ElementsMatch(t, []string{"vip", "bulk"}, leaves)
}
