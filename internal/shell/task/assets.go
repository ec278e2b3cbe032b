package task

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

//go:embed all:resources/maintenance
var resources embed.FS

var assets struct {
	mu  sync.Mutex
	dir string
}

// maintenanceAssets returns a local directory holding the built-in
// maintenance page. The embedded files are written out once and reused
// until CleanupAssets removes them.
func maintenanceAssets() (string, error) {
	assets.mu.Lock()
	defer assets.mu.Unlock()

	if assets.dir != "" {
		return assets.dir, nil
	}
	dir, err := materialize(resources, "resources/maintenance")
	if err != nil {
		return "", err
	}
	assets.dir = dir
	return dir, nil
}

// CleanupAssets removes the materialized built-in maintenance page, if any.
// Call it once no task will upload the page anymore.
func CleanupAssets() error {
	assets.mu.Lock()
	defer assets.mu.Unlock()

	if assets.dir == "" {
		return nil
	}
	err := os.RemoveAll(assets.dir)
	assets.dir = ""
	return err
}

// materialize copies the tree at root in fsys into a new temporary directory.
func materialize(fsys fs.FS, root string) (string, error) {
	dir, err := os.MkdirTemp("", "stagehand-maintenance-")
	if err != nil {
		return "", fmt.Errorf("create assets directory: %w", err)
	}

	err = fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("write maintenance assets: %w", err)
	}
	return dir, nil
}
