package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stagehand/internal/core/policy"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{MaintenanceModeTaskName}, r.Names())

	task, err := r.Build(MaintenanceModeTaskName, map[string]any{"strategy": "all"})
	require.NoError(t, err)
	assert.Equal(t, MaintenanceModeTaskName, task.Name())
}

func TestRegistry_Build(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Build("deploy_release", nil)
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = r.Build(MaintenanceModeTaskName, map[string]any{"strategy": "invalid"})
	assert.ErrorIs(t, err, policy.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "build task maintenance_mode")
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("noop", NewMaintenanceModeTaskFromOptions))
	assert.ErrorIs(t, r.Register("noop", NewMaintenanceModeTaskFromOptions), ErrDuplicateTask)
	assert.Error(t, r.Register("", NewMaintenanceModeTaskFromOptions))
	assert.Error(t, r.Register("nil", nil))
	assert.Equal(t, []string{"noop"}, r.Names())
}

func TestMaintenanceAssets(t *testing.T) {
	dir, err := maintenanceAssets()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Down for maintenance</title>")

	again, err := maintenanceAssets()
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}

func TestCleanupAssets(t *testing.T) {
	dir, err := maintenanceAssets()
	require.NoError(t, err)
	assert.DirExists(t, dir)

	require.NoError(t, CleanupAssets())
	assert.NoDirExists(t, dir)
	require.NoError(t, CleanupAssets())

	// Materialized again on the next use
	again, err := maintenanceAssets()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupAssets() })
	assert.NotEqual(t, dir, again)
	assert.FileExists(t, filepath.Join(again, "index.html"))
}
