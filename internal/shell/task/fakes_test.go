package task

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artpar/stagehand/internal/core/domain"
	"github.com/artpar/stagehand/internal/core/events"
)

// =============================================================================
// Fake Connection
// =============================================================================

type call struct {
	Op   string
	Args []string
}

// fakeConnection records every call and answers from scripted results.
type fakeConnection struct {
	calls []call

	connected   bool
	connectOK   bool
	isDirectory []bool // Consumed in order; the last value repeats
	createOK    bool
	isLink      bool
	linkOK      bool
	deleteOK    bool
	putOK       bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		connected: true,
		connectOK: true,
		createOK:  true,
		linkOK:    true,
		deleteOK:  true,
		putOK:     true,
	}
}

func (c *fakeConnection) record(op string, args ...string) {
	c.calls = append(c.calls, call{Op: op, Args: args})
}

func (c *fakeConnection) Connect() bool {
	c.record("connect")
	if c.connectOK {
		c.connected = true
	}
	return c.connectOK
}

func (c *fakeConnection) IsConnected() bool {
	c.record("isConnected")
	return c.connected
}

func (c *fakeConnection) Disconnect() bool {
	c.record("disconnect")
	c.connected = false
	return true
}

func (c *fakeConnection) IsDirectory(path string) bool {
	c.record("isDirectory", path)
	if len(c.isDirectory) == 0 {
		return false
	}
	result := c.isDirectory[0]
	if len(c.isDirectory) > 1 {
		c.isDirectory = c.isDirectory[1:]
	}
	return result
}

func (c *fakeConnection) CreateDirectory(path string) bool {
	c.record("createDirectory", path)
	return c.createOK
}

func (c *fakeConnection) IsFile(path string) bool {
	c.record("isFile", path)
	return false
}

func (c *fakeConnection) IsLink(path string) bool {
	c.record("isLink", path)
	return c.isLink
}

func (c *fakeConnection) Link(target, linkPath string) bool {
	c.record("link", target, linkPath)
	return c.linkOK
}

func (c *fakeConnection) Delete(path string, recursive bool) bool {
	c.record("delete", path, strconv.FormatBool(recursive))
	return c.deleteOK
}

func (c *fakeConnection) PutFile(localPath, remotePath string) bool {
	c.record("putFile", localPath, remotePath)
	return c.putOK
}

func (c *fakeConnection) GetFile(remotePath, localPath string) bool {
	c.record("getFile", remotePath, localPath)
	return false
}

// callsTo returns the recorded calls of one operation.
func (c *fakeConnection) callsTo(op string) []call {
	var out []call
	for _, cl := range c.calls {
		if cl.Op == op {
			out = append(out, cl)
		}
	}
	return out
}

// ops returns the recorded operation names in order.
func (c *fakeConnection) ops() []string {
	out := make([]string, 0, len(c.calls))
	for _, cl := range c.calls {
		out = append(out, cl.Op)
	}
	return out
}

// =============================================================================
// Fake Target
// =============================================================================

type fakeTarget struct {
	path          string
	stage         domain.Stage
	hasConnection bool
	conn          domain.Connection

	hasConnectionCalls int
	connectionCalls    int
	stageCalls         int
}

func newFakeTarget(conn domain.Connection) *fakeTarget {
	return &fakeTarget{
		path:          "{workspace}",
		stage:         domain.StageTest,
		hasConnection: true,
		conn:          conn,
	}
}

func (t *fakeTarget) Hostname() string {
	return "example.com"
}

func (t *fakeTarget) Stage() domain.Stage {
	t.stageCalls++
	return t.stage
}

func (t *fakeTarget) Path() string {
	return t.path
}

func (t *fakeTarget) HasConnection() bool {
	t.hasConnectionCalls++
	return t.hasConnection
}

func (t *fakeTarget) Connection() (domain.Connection, error) {
	t.connectionCalls++
	return t.conn, nil
}

// =============================================================================
// Recording Dispatcher
// =============================================================================

type dispatched struct {
	Name  events.Name
	Event events.Event
}

type recordingDispatcher struct {
	dispatched []dispatched
}

func (d *recordingDispatcher) Dispatch(_ context.Context, name events.Name, event events.Event) error {
	d.dispatched = append(d.dispatched, dispatched{Name: name, Event: event})
	return nil
}

// logs returns the dispatched log events in order.
func (d *recordingDispatcher) logs() []*events.LogEvent {
	var out []*events.LogEvent
	for _, e := range d.dispatched {
		if log, ok := e.Event.(*events.LogEvent); ok {
			out = append(out, log)
		}
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

// writeSource creates a local maintenance source tree holding files.
func writeSource(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
	return dir
}

func mustRelease(t *testing.T, v string) *domain.Release {
	t.Helper()
	r, err := domain.NewRelease(v)
	require.NoError(t, err)
	return r
}
