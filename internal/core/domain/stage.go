// Package domain contains the core deployment types: stages, hosts, workspaces and releases.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Stage Errors
// =============================================================================

// ErrInvalidStage is returned when a stage name is not one of the known stages.
var ErrInvalidStage = errors.New("invalid stage")

// =============================================================================
// Stage
// =============================================================================

// Stage is the deployment environment tier a host belongs to.
type Stage string

const (
	StageTest       Stage = "test"
	StageAcceptance Stage = "acceptance"
	StageProduction Stage = "production"
)

// Stages returns every known stage, from least to most critical.
func Stages() []Stage {
	return []Stage{StageTest, StageAcceptance, StageProduction}
}

// IsValid checks if the stage is one of the known stages.
func (s Stage) IsValid() bool {
	switch s {
	case StageTest, StageAcceptance, StageProduction:
		return true
	default:
		return false
	}
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage converts a stage name into a Stage.
// The returned error names the offending input.
func ParseStage(name string) (Stage, error) {
	stage := Stage(name)
	if !stage.IsValid() {
		return "", fmt.Errorf("'%s' is not a valid stage: %w", name, ErrInvalidStage)
	}
	return stage, nil
}
