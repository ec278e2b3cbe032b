package domain

// =============================================================================
// Path Composition
// =============================================================================

// MaintenanceDirectory returns the maintenance page directory below hostPath.
// The subdirectory is appended as-is, which allows one maintenance page per
// document root on hosts that serve several.
func MaintenanceDirectory(hostPath, subdirectory string) string {
	return hostPath + "/maintenance/" + subdirectory
}

// StagePath returns the path of the stage symlink below hostPath.
func StagePath(hostPath string, stage Stage) string {
	return hostPath + "/" + string(stage)
}

// ReleasesDirectory returns the directory holding all releases below hostPath.
func ReleasesDirectory(hostPath string) string {
	return hostPath + "/releases"
}

// ReleaseDirectory returns the directory of one release version below hostPath.
func ReleaseDirectory(hostPath, version string) string {
	return ReleasesDirectory(hostPath) + "/" + version
}

// =============================================================================
// Workspace
// =============================================================================

// Workspace is the directory structure managed on one host during one
// deployment run. All paths are derived from the host; none are stored.
type Workspace struct {
	host Target
}

// NewWorkspace creates a workspace for the given host.
func NewWorkspace(host Target) *Workspace {
	return &Workspace{host: host}
}

// Host returns the host the workspace lives on.
func (w *Workspace) Host() Target {
	return w.host
}

// Path returns the workspace root.
func (w *Workspace) Path() string {
	return w.host.Path()
}

// MaintenanceDirectory returns the maintenance page directory.
func (w *Workspace) MaintenanceDirectory(subdirectory string) string {
	return MaintenanceDirectory(w.host.Path(), subdirectory)
}

// StagePath returns the stage symlink path.
func (w *Workspace) StagePath() string {
	return StagePath(w.host.Path(), w.host.Stage())
}

// ReleasesDirectory returns the directory holding all releases.
func (w *Workspace) ReleasesDirectory() string {
	return ReleasesDirectory(w.host.Path())
}

// ReleaseDirectory returns the directory of the given release.
func (w *Workspace) ReleaseDirectory(release *Release) string {
	return ReleaseDirectory(w.host.Path(), release.DirectoryName())
}
