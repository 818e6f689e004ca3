package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/taskgate/internal/config"
)

func TestValidateCmd_AcceptsExampleConfig(t *testing.T) {
	contents, err := os.ReadFile("../../taskgate.example.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	doc, err := config.Load(path)
	require.NoError(t, err)

	hierarchy, matcher, err := config.Build(doc)
	require.NoError(t, err)
	assert.Equal(t, "main", hierarchy.RootID())
	assert.NotNil(t, matcher)
}
