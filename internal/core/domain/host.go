package domain

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
)

// =============================================================================
// Host Errors
// =============================================================================

var (
	// Host validation errors
	ErrHostnameRequired = errors.New("hostname is required")
	ErrHostnameInvalid  = errors.New("hostname must be a valid hostname or IP address")
	ErrHostPathRequired = errors.New("host path is required")

	// Connection errors
	ErrNoConnection        = errors.New("host has no connection configured")
	ErrNoConnectionFactory = errors.New("host has no connection factory")
	ErrConnectionFailed    = errors.New("connection could not be established")
)

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// =============================================================================
// Target
// =============================================================================

// Target is the view of a deployment host that tasks work against.
type Target interface {
	Hostname() string
	Stage() Stage
	Path() string

	// HasConnection reports whether a Connection can be provided.
	HasConnection() bool

	// Connection returns the host's Connection, building it on first use.
	Connection() (Connection, error)
}

// =============================================================================
// Host
// =============================================================================

// Host is a deployment target within a stage.
// It exclusively owns its Connection, which is created on first need and
// cached for the lifetime of the Host.
type Host struct {
	hostname         string
	stage            Stage
	path             string
	connectionConfig ConnectionConfig
	factory          ConnectionFactory

	mu         sync.Mutex // Protects connection
	connection Connection
}

// NewHost creates a new host with validated fields.
// Returns error if any validation fails.
func NewHost(hostname string, stage Stage, path string, config ConnectionConfig, factory ConnectionFactory) (*Host, error) {
	if err := ValidateHostname(hostname); err != nil {
		return nil, err
	}
	if !stage.IsValid() {
		return nil, fmt.Errorf("'%s' is not a valid stage: %w", stage, ErrInvalidStage)
	}
	if path == "" {
		return nil, ErrHostPathRequired
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	return &Host{
		hostname:         hostname,
		stage:            stage,
		path:             path,
		connectionConfig: config,
		factory:          factory,
	}, nil
}

// Hostname returns the host name.
func (h *Host) Hostname() string {
	return h.hostname
}

// Stage returns the stage the host belongs to.
func (h *Host) Stage() Stage {
	return h.stage
}

// Path returns the workspace root path on the host.
func (h *Host) Path() string {
	return h.path
}

// ConnectionConfig returns the configuration used to build the connection.
func (h *Host) ConnectionConfig() ConnectionConfig {
	return h.connectionConfig
}

// HasConnection reports whether the host is configured to provide a Connection.
func (h *Host) HasConnection() bool {
	return !h.connectionConfig.IsZero()
}

// Connection returns the host's Connection.
// The Connection is built by the factory on the first call only.
func (h *Host) Connection() (Connection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connection != nil {
		return h.connection, nil
	}
	if !h.HasConnection() {
		return nil, fmt.Errorf("%s: %w", h.hostname, ErrNoConnection)
	}
	if h.factory == nil {
		return nil, fmt.Errorf("%s: %w", h.hostname, ErrNoConnectionFactory)
	}

	conn, err := h.factory(h.hostname, h.connectionConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection for %s: %w", h.hostname, err)
	}
	h.connection = conn
	return conn, nil
}

// Close disconnects the Connection if one was built.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connection != nil && h.connection.IsConnected() {
		h.connection.Disconnect()
	}
}

// =============================================================================
// Connection Helpers
// =============================================================================

// EnsureConnection returns the target's Connection, connecting it if needed.
func EnsureConnection(target Target) (Connection, error) {
	if !target.HasConnection() {
		return nil, fmt.Errorf("%s: %w", target.Hostname(), ErrNoConnection)
	}

	conn, err := target.Connection()
	if err != nil {
		return nil, err
	}

	if !conn.IsConnected() && !conn.Connect() {
		return nil, fmt.Errorf("%s: %w", target.Hostname(), ErrConnectionFailed)
	}
	return conn, nil
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateHostname validates a host name (hostname or IP).
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return ErrHostnameRequired
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return nil
	}
	if hostnameRegex.MatchString(hostname) {
		return nil
	}
	return ErrHostnameInvalid
}
