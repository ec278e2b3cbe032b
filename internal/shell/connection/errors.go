// Package connection provides the SSH and local-filesystem backends behind
// domain.Connection.
package connection

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrUnsupportedType   = errors.New("unsupported connection type")
	ErrIdentityRequired  = errors.New("identity file is required for ssh connections")
	ErrInvalidIdentity   = errors.New("invalid SSH private key")
	ErrKnownHostsInvalid = errors.New("known hosts file could not be loaded")
	ErrNotConnected      = errors.New("not connected")
	ErrTimeout           = errors.New("operation timed out")
)

// OperationError describes a failed backend operation. Adapters never
// return it to callers; it is logged so the failure reason is not lost
// behind the boolean result.
type OperationError struct {
	Op   string // Operation that failed
	Host string
	Path string
	Err  error
}

func (e *OperationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s on %s: %v", e.Op, e.Path, e.Host, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Host, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
