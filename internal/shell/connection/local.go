package connection

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// LocalAdapter implements domain.Connection on the local filesystem. It is
// used for hosts deployed on the machine running the deployment and in tests.
type LocalAdapter struct {
	host      string
	logger    *slog.Logger
	connected bool
}

// NewLocalAdapter creates a local filesystem adapter.
func NewLocalAdapter(host string, logger *slog.Logger) *LocalAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalAdapter{
		host:   host,
		logger: logger.With("component", "local_connection", "host", host),
	}
}

// Connect always succeeds.
func (c *LocalAdapter) Connect() bool {
	c.connected = true
	return true
}

func (c *LocalAdapter) IsConnected() bool {
	return c.connected
}

func (c *LocalAdapter) Disconnect() bool {
	if !c.connected {
		return false
	}
	c.connected = false
	return true
}

func (c *LocalAdapter) IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (c *LocalAdapter) CreateDirectory(path string) bool {
	if err := os.MkdirAll(path, 0o755); err != nil {
		c.fail("create-directory", path, err)
		return false
	}
	return true
}

func (c *LocalAdapter) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (c *LocalAdapter) IsLink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func (c *LocalAdapter) Link(target, linkPath string) bool {
	if err := os.Symlink(target, linkPath); err != nil {
		c.fail("link", linkPath, err)
		return false
	}
	return true
}

// Delete removes path. Non-recursive deletion only removes files, links and
// empty directories.
func (c *LocalAdapter) Delete(path string, recursive bool) bool {
	if _, err := os.Lstat(path); err != nil {
		c.fail("delete", path, err)
		return false
	}

	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		c.fail("delete", path, err)
		return false
	}
	return true
}

func (c *LocalAdapter) PutFile(localPath, remotePath string) bool {
	if err := copyFile(localPath, remotePath); err != nil {
		c.fail("put-file", remotePath, err)
		return false
	}
	return true
}

func (c *LocalAdapter) GetFile(remotePath, localPath string) bool {
	if err := copyFile(remotePath, localPath); err != nil {
		c.fail("get-file", remotePath, err)
		return false
	}
	return true
}

func (c *LocalAdapter) fail(op, path string, err error) {
	c.logger.Debug("local operation failed", "error", &OperationError{Op: op, Host: c.host, Path: path, Err: err})
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("source is a directory")
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
