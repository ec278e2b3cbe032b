// Package store provides the release ledger: the record of which release
// was prepared on which host.
package store

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a host has no matching release.
	ErrNotFound = errors.New("release not found")

	// ErrDuplicateID is returned when recording a release with an existing ID.
	ErrDuplicateID = errors.New("release already recorded")

	// ErrConnectionFailed is returned when the ledger database cannot be opened.
	ErrConnectionFailed = errors.New("ledger database unavailable")

	// ErrMigrationFailed is returned when the ledger schema cannot be migrated.
	ErrMigrationFailed = errors.New("ledger migration failed")

	// ErrInvalidData is returned when a record fails validation or a stored
	// row cannot be read back.
	ErrInvalidData = errors.New("invalid release record")
)

// StoreError describes a failed ledger operation on a host's releases.
type StoreError struct {
	Op      string // Ledger method, e.g. "RecordRelease"
	Host    string // Hostname the operation concerned, if any
	Release string // Release record ID, if known
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	b.WriteString("ledger ")
	b.WriteString(e.Op)
	if e.Host != "" {
		fmt.Fprintf(&b, " host=%s", e.Host)
	}
	if e.Release != "" {
		fmt.Fprintf(&b, " release=%s", e.Release)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func newStoreError(op, host, release, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Host:    host,
		Release: release,
		Message: message,
		Err:     err,
	}
}
