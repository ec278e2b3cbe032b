package task

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/artpar/stagehand/internal/core/domain"
	"github.com/artpar/stagehand/internal/core/events"
	"github.com/artpar/stagehand/internal/core/policy"
	"github.com/artpar/stagehand/internal/core/version"
)

// MaintenanceModeTaskName is the registry name of the maintenance mode task.
const MaintenanceModeTaskName = "maintenance_mode"

// =============================================================================
// Configuration
// =============================================================================

// MaintenanceModeConfig configures a MaintenanceModeTask.
type MaintenanceModeConfig struct {
	// Strategy selects the version differences that activate maintenance mode.
	Strategy version.Strategy

	// Subdirectory nests the page below the maintenance directory, for hosts
	// serving several document roots.
	Subdirectory string

	// SourceDir is the local maintenance page tree. The built-in page is
	// used when empty.
	SourceDir string
}

// DefaultMaintenanceModeConfig returns a configuration that activates
// maintenance mode for major version changes only.
func DefaultMaintenanceModeConfig() MaintenanceModeConfig {
	return MaintenanceModeConfig{
		Strategy: version.MatchMajorDifference,
	}
}

type maintenanceModeOptions struct {
	Strategy     string `mapstructure:"strategy"`
	Subdirectory string `mapstructure:"subdirectory"`
	SourceDir    string `mapstructure:"source_dir"`
}

// =============================================================================
// MaintenanceModeTask
// =============================================================================

// MaintenanceModeTask stages a maintenance page in the workspace and points
// the stage link at it while a release transition is in progress.
type MaintenanceModeTask struct {
	strategy     version.Strategy
	subdirectory string
	sourceDir    string
}

// NewMaintenanceModeTask creates the task, validating the strategy and the
// subdirectory.
func NewMaintenanceModeTask(cfg MaintenanceModeConfig) (*MaintenanceModeTask, error) {
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", policy.ErrInvalidArgument, err)
	}

	subdirectory, err := cleanSubdirectory(cfg.Subdirectory)
	if err != nil {
		return nil, err
	}

	if cfg.SourceDir != "" {
		info, err := os.Stat(cfg.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("%w: maintenance page source: %w", policy.ErrInvalidArgument, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: maintenance page source %q is not a directory", policy.ErrInvalidArgument, cfg.SourceDir)
		}
	}

	return &MaintenanceModeTask{
		strategy:     cfg.Strategy,
		subdirectory: subdirectory,
		sourceDir:    cfg.SourceDir,
	}, nil
}

// NewMaintenanceModeTaskFromOptions builds the task from configured options:
// strategy ("major", "major|minor", "all" or a numeric flag set),
// subdirectory and source_dir.
func NewMaintenanceModeTaskFromOptions(options map[string]any) (Task, error) {
	var opts maintenanceModeOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("%w: %w", policy.ErrInvalidArgument, err)
	}

	cfg := DefaultMaintenanceModeConfig()
	cfg.Subdirectory = opts.Subdirectory
	cfg.SourceDir = opts.SourceDir
	if opts.Strategy != "" {
		strategy, err := version.ParseStrategy(opts.Strategy)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", policy.ErrInvalidArgument, err)
		}
		cfg.Strategy = strategy
	}

	t, err := NewMaintenanceModeTask(cfg)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the registry name of the task.
func (t *MaintenanceModeTask) Name() string {
	return MaintenanceModeTaskName
}

// Strategy returns the configured strategy.
func (t *MaintenanceModeTask) Strategy() version.Strategy {
	return t.strategy
}

// Subscriptions maps the workspace preparation to the page upload and the
// release preparation to the stage link.
func (t *MaintenanceModeTask) Subscriptions() map[events.Name][]events.Subscription {
	return map[events.Name][]events.Subscription{
		events.PrepareWorkspace:     {{Listener: t.UploadMaintenancePage}},
		events.PrepareDeployRelease: {{Listener: t.LinkMaintenancePageToStage}},
	}
}

// =============================================================================
// Handlers
// =============================================================================

// UploadMaintenancePage copies the maintenance page into the workspace.
// A maintenance directory that cannot be created ends the phase without an
// error; the page is a convenience, not a deployment prerequisite.
func (t *MaintenanceModeTask) UploadMaintenancePage(ctx context.Context, event events.Event, name events.Name, d events.Dispatcher) error {
	e, ok := event.(*events.WorkspaceEvent)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEvent, event)
	}

	phase := events.BeginPhase(ctx, d, name, t.Name(), "Uploading maintenance page.")
	defer phase.End()

	workspace := e.Workspace()
	conn, err := domain.EnsureConnection(workspace.Host())
	if err != nil {
		phase.Fail("Failed uploading maintenance page.", "error", err)
		return policy.WrapTaskError(t.Name(), string(name), "no connection to host", err)
	}

	remoteDir := workspace.MaintenanceDirectory(t.subdirectory)
	if !conn.IsDirectory(remoteDir) && conn.CreateDirectory(remoteDir) {
		phase.Info("Created maintenance directory.", "path", remoteDir)
	}
	if policy.Decide(conn.IsDirectory(remoteDir), policy.Convenience) == policy.SoftFail {
		phase.Fail("Failed uploading maintenance page.", "path", remoteDir)
		return nil
	}

	sourceDir, err := t.source()
	if err != nil {
		phase.Fail("Failed uploading maintenance page.", "error", err)
		return nil
	}

	uploaded, failed := 0, 0
	err = filepath.WalkDir(sourceDir, func(local string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, local)
		if err != nil || rel == "." {
			return err
		}
		remote := strings.TrimSuffix(remoteDir, "/") + "/" + filepath.ToSlash(rel)

		if entry.IsDir() {
			if !conn.CreateDirectory(remote) {
				phase.Warn("Failed creating directory.", "path", remote)
				return filepath.SkipDir
			}
			return nil
		}

		if !conn.PutFile(local, remote) {
			failed++
			phase.Warn("Failed uploading file.", "file", remote)
			return nil
		}
		uploaded++
		phase.Info("Uploaded file.", "file", remote)
		return nil
	})
	if err != nil {
		phase.Fail("Failed uploading maintenance page.", "error", err)
		return nil
	}

	phase.Complete("Uploaded maintenance page.", "path", remoteDir, "files", uploaded, "failed", failed)
	return nil
}

// LinkMaintenancePageToStage points the stage link at the maintenance
// directory when the version change matches the strategy or when no
// release is live yet. A link that cannot be created fails the event.
func (t *MaintenanceModeTask) LinkMaintenancePageToStage(ctx context.Context, event events.Event, name events.Name, d events.Dispatcher) error {
	e, ok := event.(*events.PrepareDeployReleaseEvent)
	if !ok || e.Release() == nil {
		return fmt.Errorf("%w: %T", ErrUnexpectedEvent, event)
	}

	// Without a current release there is nothing to compare against, so
	// the stage always goes into maintenance.
	if current := e.CurrentRelease(); current != nil {
		category := version.Categorize(e.Release().Version(), current.Version())
		if !t.strategy.Matches(category) {
			return events.Skip(ctx, d, name, t.Name(),
				fmt.Sprintf("Skipped linking maintenance page: %s version difference does not match strategy.", category),
				"strategy", t.strategy.String())
		}
	}

	phase := events.BeginPhase(ctx, d, name, t.Name(), "Linking maintenance page to stage.")
	defer phase.End()

	workspace := e.Workspace()
	conn, err := domain.EnsureConnection(workspace.Host())
	if err != nil {
		phase.Fail("Failed linking maintenance page to stage.", "error", err)
		return policy.WrapTaskError(t.Name(), string(name), "no connection to host", err)
	}

	stagePath := workspace.StagePath()
	maintenanceDir := workspace.MaintenanceDirectory(t.subdirectory)

	if conn.IsLink(stagePath) && !conn.Delete(stagePath, false) {
		phase.Warn("Failed removing existing stage link.", "path", stagePath)
	}

	if policy.Decide(conn.Link(maintenanceDir, stagePath), policy.Required) == policy.HardFail {
		message := fmt.Sprintf("Linking %q to maintenance page failed.", stagePath)
		phase.Fail(message)
		return policy.NewTaskError(t.Name(), string(name), message)
	}

	phase.Complete("Linked maintenance page to stage.", "path", stagePath)
	return nil
}

func (t *MaintenanceModeTask) source() (string, error) {
	if t.sourceDir != "" {
		return t.sourceDir, nil
	}
	return maintenanceAssets()
}

// cleanSubdirectory normalizes a relative subdirectory and rejects paths
// that would leave the maintenance directory.
func cleanSubdirectory(subdirectory string) (string, error) {
	if subdirectory == "" {
		return "", nil
	}
	if path.IsAbs(subdirectory) {
		return "", fmt.Errorf("%w: subdirectory %q must be relative", policy.ErrInvalidArgument, subdirectory)
	}

	cleaned := path.Clean(subdirectory)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: subdirectory %q leaves the maintenance directory", policy.ErrInvalidArgument, subdirectory)
	}
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}
