package connection

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHAdapter implements domain.Connection by running POSIX shell commands on
// the remote host over SSH. Each operation uses its own session.
type SSHAdapter struct {
	host         string // Display name for logs
	addr         string
	clientConfig *ssh.ClientConfig
	timeout      time.Duration // Per-command timeout
	logger       *slog.Logger

	mu     sync.Mutex // Protects client
	client *ssh.Client
}

// SSHConfig configures the SSH adapter.
type SSHConfig struct {
	Host           string
	Port           int           // Default: 22
	User           string        // Default: current user
	IdentityFile   string        // Private key used for public key auth
	KnownHostsFile string        // Host keys are not verified when empty
	ConnectTimeout time.Duration // Default: 10 seconds
	CommandTimeout time.Duration // Default: 60 seconds
}

// DefaultSSHConfig returns the default configuration.
func DefaultSSHConfig() SSHConfig {
	return SSHConfig{
		Port:           22,
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 60 * time.Second,
	}
}

// NewSSHAdapter creates a new SSH adapter. No connection is made until
// Connect is called.
func NewSSHAdapter(config SSHConfig, logger *slog.Logger) (*SSHAdapter, error) {
	if config.IdentityFile == "" {
		return nil, ErrIdentityRequired
	}
	if config.Port == 0 {
		config.Port = 22
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = 60 * time.Second
	}
	if config.User == "" {
		if u, err := user.Current(); err == nil {
			config.User = u.Username
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	privateKey, err := os.ReadFile(expandHome(config.IdentityFile))
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if config.KnownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(expandHome(config.KnownHostsFile))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKnownHostsInvalid, err)
		}
	}

	return &SSHAdapter{
		host: config.Host,
		addr: net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		clientConfig: &ssh.ClientConfig{
			User:            config.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         config.ConnectTimeout,
		},
		timeout: config.CommandTimeout,
		logger:  logger.With("component", "ssh_connection", "host", config.Host),
	}, nil
}

// =============================================================================
// Connection Management
// =============================================================================

// Connect establishes the SSH connection if not already connected.
func (c *SSHAdapter) Connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		// Check if connection is still alive
		if _, _, err := c.client.SendRequest("keepalive@stagehand", true, nil); err == nil {
			return true
		}
		c.client.Close()
		c.client = nil
	}

	client, err := ssh.Dial("tcp", c.addr, c.clientConfig)
	if err != nil {
		c.fail("connect", "", err)
		return false
	}

	c.client = client
	return true
}

// IsConnected reports whether a connection has been established.
func (c *SSHAdapter) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// Disconnect closes the SSH connection.
func (c *SSHAdapter) Disconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return false
	}
	err := c.client.Close()
	c.client = nil
	return err == nil
}

// =============================================================================
// Filesystem Operations
// =============================================================================

func (c *SSHAdapter) IsDirectory(path string) bool {
	return c.run("is-directory", path, testCommand("-d", path), nil, nil)
}

func (c *SSHAdapter) CreateDirectory(path string) bool {
	return c.run("create-directory", path, "mkdir -p "+shellQuote(path), nil, nil)
}

func (c *SSHAdapter) IsFile(path string) bool {
	return c.run("is-file", path, testCommand("-f", path), nil, nil)
}

func (c *SSHAdapter) IsLink(path string) bool {
	return c.run("is-link", path, testCommand("-L", path), nil, nil)
}

func (c *SSHAdapter) Link(target, linkPath string) bool {
	return c.run("link", linkPath, linkCommand(target, linkPath), nil, nil)
}

func (c *SSHAdapter) Delete(path string, recursive bool) bool {
	return c.run("delete", path, deleteCommand(path, recursive), nil, nil)
}

// PutFile streams a local file into remotePath. The remote directory must exist.
func (c *SSHAdapter) PutFile(localPath, remotePath string) bool {
	f, err := os.Open(localPath)
	if err != nil {
		c.fail("put-file", remotePath, err)
		return false
	}
	defer f.Close()

	return c.run("put-file", remotePath, "cat > "+shellQuote(remotePath), f, nil)
}

// GetFile copies remotePath into a local file, removing it again on failure.
func (c *SSHAdapter) GetFile(remotePath, localPath string) bool {
	f, err := os.Create(localPath)
	if err != nil {
		c.fail("get-file", remotePath, err)
		return false
	}

	ok := c.run("get-file", remotePath, "cat "+shellQuote(remotePath), nil, f)
	if err := f.Close(); err != nil {
		ok = false
	}
	if !ok {
		os.Remove(localPath)
	}
	return ok
}

// =============================================================================
// Command Execution
// =============================================================================

// run executes cmd in a new session and reports whether it exited with status 0.
func (c *SSHAdapter) run(op, path, cmd string, stdin io.Reader, stdout io.Writer) bool {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		c.fail(op, path, ErrNotConnected)
		return false
	}

	session, err := client.NewSession()
	if err != nil {
		c.fail(op, path, fmt.Errorf("create SSH session: %w", err))
		return false
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-time.After(c.timeout):
		c.fail(op, path, fmt.Errorf("%w after %v", ErrTimeout, c.timeout))
		return false
	case err := <-done:
		if err != nil {
			// Exit status 1 from test(1) is an answer, not a failure
			if _, ok := err.(*ssh.ExitError); ok && strings.HasPrefix(cmd, "test ") {
				return false
			}
			c.fail(op, path, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
			return false
		}
		return true
	}
}

func (c *SSHAdapter) fail(op, path string, err error) {
	c.logger.Debug("ssh operation failed", "error", &OperationError{Op: op, Host: c.host, Path: path, Err: err})
}

// =============================================================================
// Command Builders
// =============================================================================

func testCommand(flag, path string) string {
	return "test " + flag + " " + shellQuote(path)
}

func linkCommand(target, linkPath string) string {
	return "ln -s " + shellQuote(target) + " " + shellQuote(linkPath)
}

// deleteCommand removes a file, a link or an empty directory. Recursive
// deletion removes whole trees but still fails for a missing path.
func deleteCommand(path string, recursive bool) string {
	p := shellQuote(path)
	if recursive {
		return fmt.Sprintf("{ [ -e %s ] || [ -L %s ]; } && rm -rf %s", p, p, p)
	}
	return fmt.Sprintf("if [ -d %s ] && [ ! -L %s ]; then rmdir %s; else rm %s; fi", p, p, p, p)
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
