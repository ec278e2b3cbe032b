package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/stagehand/internal/core/domain"
)

// =============================================================================
// Ledger Interface
// =============================================================================

// Ledger records the outcome of release preparations per host.
type Ledger interface {
	// RecordRelease stores a record. A zero ID and CreatedAt are filled in.
	RecordRelease(ctx context.Context, record *ReleaseRecord) error

	// CurrentRelease returns the latest prepared release of a host in a
	// stage, or ErrNotFound. Releases are never activated here, so the
	// latest successful preparation stands in for the live release: a
	// prepared release that was never rolled out still becomes current.
	CurrentRelease(ctx context.Context, hostname string, stage domain.Stage) (*ReleaseRecord, error)

	// ListReleases returns the records of a host, newest first.
	ListReleases(ctx context.Context, hostname string, limit int) ([]ReleaseRecord, error)

	// Lifecycle
	Close() error
}

// =============================================================================
// Release Records
// =============================================================================

// ReleaseStatus is the outcome of preparing a release on a host.
type ReleaseStatus string

const (
	ReleaseStatusPrepared ReleaseStatus = "prepared"
	ReleaseStatusFailed   ReleaseStatus = "failed"
)

// IsValid checks if the status is known.
func (s ReleaseStatus) IsValid() bool {
	switch s {
	case ReleaseStatusPrepared, ReleaseStatusFailed:
		return true
	default:
		return false
	}
}

// ReleaseRecord is one ledger entry.
type ReleaseRecord struct {
	ID        uuid.UUID
	Hostname  string
	Stage     domain.Stage
	Version   string
	Status    ReleaseStatus
	Error     string // Failure reason when Status is failed
	CreatedAt time.Time
}

// NewReleaseRecord creates a record for a preparation run. A non-nil runErr
// marks the record failed.
func NewReleaseRecord(hostname string, stage domain.Stage, version string, runErr error) *ReleaseRecord {
	r := &ReleaseRecord{
		ID:        uuid.New(),
		Hostname:  hostname,
		Stage:     stage,
		Version:   version,
		Status:    ReleaseStatusPrepared,
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil {
		r.Status = ReleaseStatusFailed
		r.Error = runErr.Error()
	}
	return r
}

// Release converts the record into a domain release.
func (r *ReleaseRecord) Release() (*domain.Release, error) {
	return domain.NewRelease(r.Version)
}

// =============================================================================
// Options
// =============================================================================

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// normalizeLimit ensures a list limit has a valid value.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
