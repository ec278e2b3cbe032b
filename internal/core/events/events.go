// Package events defines the deployment lifecycle events, their payloads and
// the priority-ordered dispatcher that drives the task pipeline.
// This is part of the Functional Core - no I/O happens here; listeners do it.
package events

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/stagehand/internal/core/domain"
)

// ErrUnknownEvent is returned for event names outside the lifecycle set.
var ErrUnknownEvent = errors.New("unknown event")

// =============================================================================
// Lifecycle Event Names
// =============================================================================

// Name identifies a lifecycle event. The set is closed.
type Name string

const (
	// PrepareWorkspace is dispatched with a *WorkspaceEvent once the
	// workspace of a host is known.
	PrepareWorkspace Name = "prepare_workspace"

	// PrepareDeployRelease is dispatched with a *PrepareDeployReleaseEvent
	// before a new release is deployed over the current one.
	PrepareDeployRelease Name = "prepare_deploy_release"

	// Log carries *LogEvent progress reports dispatched by listeners.
	Log Name = "log"
)

// Names returns the lifecycle events in dispatch order, followed by Log.
func Names() []Name {
	return []Name{PrepareWorkspace, PrepareDeployRelease, Log}
}

// IsValid checks if the name is a known lifecycle event.
func (n Name) IsValid() bool {
	switch n {
	case PrepareWorkspace, PrepareDeployRelease, Log:
		return true
	default:
		return false
	}
}

// ParseName converts a configured event name into a Name.
func ParseName(name string) (Name, error) {
	n := Name(name)
	if !n.IsValid() {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownEvent)
	}
	return n, nil
}

// =============================================================================
// Event
// =============================================================================

// Event is the payload carrier for one lifecycle point.
type Event interface {
	// StopPropagation prevents the remaining listeners from being called.
	StopPropagation()
	IsPropagationStopped() bool
}

// Propagation implements the propagation half of Event for embedding.
type Propagation struct {
	stopped bool
}

func (p *Propagation) StopPropagation() {
	p.stopped = true
}

func (p *Propagation) IsPropagationStopped() bool {
	return p.stopped
}

// =============================================================================
// Payloads
// =============================================================================

// WorkspaceEvent carries the workspace being prepared.
type WorkspaceEvent struct {
	Propagation
	workspace *domain.Workspace
}

// NewWorkspaceEvent creates a WorkspaceEvent.
func NewWorkspaceEvent(workspace *domain.Workspace) *WorkspaceEvent {
	return &WorkspaceEvent{workspace: workspace}
}

func (e *WorkspaceEvent) Workspace() *domain.Workspace {
	return e.workspace
}

// PrepareDeployReleaseEvent carries the release about to be deployed and
// the release currently active on the host.
type PrepareDeployReleaseEvent struct {
	WorkspaceEvent
	release        *domain.Release
	currentRelease *domain.Release
}

// NewPrepareDeployReleaseEvent creates a PrepareDeployReleaseEvent.
// currentRelease is nil when nothing has been deployed yet.
func NewPrepareDeployReleaseEvent(workspace *domain.Workspace, release, currentRelease *domain.Release) *PrepareDeployReleaseEvent {
	return &PrepareDeployReleaseEvent{
		WorkspaceEvent: WorkspaceEvent{workspace: workspace},
		release:        release,
		currentRelease: currentRelease,
	}
}

func (e *PrepareDeployReleaseEvent) Release() *domain.Release {
	return e.release
}

func (e *PrepareDeployReleaseEvent) CurrentRelease() *domain.Release {
	return e.currentRelease
}

// =============================================================================
// Log Event
// =============================================================================

// Status marks where a LogEvent sits within a phase.
type Status string

const (
	StatusNone      Status = ""
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// LogEvent reports progress of a listener working on a lifecycle event.
type LogEvent struct {
	Propagation
	Level   slog.Level
	Message string
	Source  Name   // Lifecycle event being handled
	Task    string // Name of the reporting task
	Status  Status
	Attrs   []any // slog-style key/value pairs
}
