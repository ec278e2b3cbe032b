package domain

import "time"

// =============================================================================
// Connection Capabilities
// =============================================================================

// Connection is the uniform capability set over a remote or local backend.
//
// Every operation reports plain success or truth. Ordinary I/O outcomes
// (missing paths, permission problems, dropped sessions) are never raised;
// deciding whether a false result matters is left to the caller.
type Connection interface {
	Connect() bool
	IsConnected() bool
	Disconnect() bool

	IsDirectory(path string) bool
	CreateDirectory(path string) bool
	IsFile(path string) bool
	IsLink(path string) bool

	// Link creates a symbolic link at linkPath pointing to target.
	Link(target, linkPath string) bool
	Delete(path string, recursive bool) bool

	PutFile(localPath, remotePath string) bool
	GetFile(remotePath, localPath string) bool
}

// ConnectionType identifies the backend a Connection talks to.
type ConnectionType string

const (
	ConnectionTypeSSH   ConnectionType = "ssh"
	ConnectionTypeLocal ConnectionType = "local"
)

// IsValid checks if the connection type is supported.
func (t ConnectionType) IsValid() bool {
	switch t {
	case ConnectionTypeSSH, ConnectionTypeLocal:
		return true
	default:
		return false
	}
}

// ConnectionConfig describes how to reach a host.
type ConnectionConfig struct {
	Type           ConnectionType
	Hostname       string // Overrides the host name for dialing, if set
	Port           int
	User           string
	IdentityFile   string
	KnownHostsFile string
	Timeout        time.Duration
}

// IsZero reports whether no connection has been configured.
func (c ConnectionConfig) IsZero() bool {
	return c.Type == ""
}

// ConnectionFactory builds the Connection for a host.
type ConnectionFactory func(hostname string, config ConnectionConfig) (Connection, error)
