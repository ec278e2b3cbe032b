package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stagehand/internal/core/domain"
)

const sampleConfig = `
hosts:
  - hostname: web1.example.com
    stage: production
    path: /var/www/app
    connection:
      type: ssh
      hostname: 10.0.0.5
      port: 2222
      user: deploy
      identity_file: ~/.ssh/id_ed25519
      timeout: 5s
  - hostname: test.example.com
    stage: test
    path: /var/www/app/
    connection:
      type: local
  - hostname: web2.example.com
    stage: production
    path: /srv/app

events:
  subscribers:
    - class: maintenance_mode
      strategy: major|minor
      subdirectory: web
  listeners:
    - event: log
      listener: logger
      priority: 10

ledger:
  dsn: /tmp/ledger.db

log:
  level: debug
  format: json

deployment:
  concurrency: 2
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Hosts())
	assert.Equal(t, "./data/stagehand.db", cfg.Ledger.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Deployment.Concurrency)
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "stagehand.yaml", sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.HostList, 3)
	h := cfg.HostList[0]
	assert.Equal(t, "web1.example.com", h.Hostname)
	assert.Equal(t, "production", h.Stage)
	assert.Equal(t, "/var/www/app", h.Path)
	assert.Equal(t, "ssh", h.Connection.Type)
	assert.Equal(t, 2222, h.Connection.Port)
	assert.Equal(t, 5*time.Second, h.Connection.Timeout)

	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Deployment.Concurrency)
}

func TestLoad_JSON(t *testing.T) {
	content := `{
  "hosts": [{"hostname": "localhost", "stage": "test", "path": "/tmp/app", "connection": {"type": "local"}}],
  "events": {"subscribers": [{"class": "maintenance_mode"}]}
}`
	cfg, err := Load(writeConfig(t, "stagehand.json", content))
	require.NoError(t, err)

	require.Len(t, cfg.Hosts(), 1)
	require.Len(t, cfg.Subscribers(), 1)
	assert.Equal(t, "maintenance_mode", cfg.Subscribers()[0].Class)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("STAGEHAND_LOG_LEVEL", "warn")
	t.Setenv("STAGEHAND_LEDGER_DSN", "/custom/ledger.db")
	t.Setenv("STAGEHAND_DEPLOYMENT_CONCURRENCY", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/custom/ledger.db", cfg.Ledger.DSN)
	assert.Equal(t, 8, cfg.Deployment.Concurrency)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name: "missing explicit file",
			path: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			wantErr: ErrConfigNotFound,
		},
		{
			name: "malformed yaml",
			path: func(t *testing.T) string {
				return writeConfig(t, "bad.yaml", "hosts: [\n  - hostname: {")
			},
			wantErr: ErrConfigParse,
		},
		{
			name: "unknown stage",
			path: func(t *testing.T) string {
				return writeConfig(t, "stage.yaml", "hosts:\n  - hostname: web1\n    stage: staging\n    path: /var/www\n")
			},
			wantErr: ErrConfigInvalid,
		},
		{
			name: "missing host path",
			path: func(t *testing.T) string {
				return writeConfig(t, "path.yaml", "hosts:\n  - hostname: web1\n    stage: test\n")
			},
			wantErr: ErrConfigInvalid,
		},
		{
			name: "ssh without identity",
			path: func(t *testing.T) string {
				return writeConfig(t, "ssh.yaml", "hosts:\n  - hostname: web1\n    stage: test\n    path: /var/www\n    connection:\n      type: ssh\n")
			},
			wantErr: ErrConfigInvalid,
		},
		{
			name: "unknown listener event",
			path: func(t *testing.T) string {
				return writeConfig(t, "listener.yaml", "events:\n  listeners:\n    - event: rollback\n      listener: logger\n")
			},
			wantErr: ErrConfigInvalid,
		},
		{
			name: "subscriber without class",
			path: func(t *testing.T) string {
				return writeConfig(t, "subscriber.yaml", "events:\n  subscribers:\n    - strategy: major\n")
			},
			wantErr: ErrConfigInvalid,
		},
		{
			name: "invalid log format",
			path: func(t *testing.T) string {
				return writeConfig(t, "log.yaml", "log:\n  format: xml\n")
			},
			wantErr: ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_InvalidFieldsAreNamed(t *testing.T) {
	_, err := Load(writeConfig(t, "path.yaml", "hosts:\n  - hostname: web1\n    stage: test\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.HostList[0].Path (required)")
}

// =============================================================================
// Accessor Tests
// =============================================================================

func TestHostsByStage(t *testing.T) {
	cfg, err := Load(writeConfig(t, "stagehand.yaml", sampleConfig))
	require.NoError(t, err)

	production, err := cfg.HostsByStage("production")
	require.NoError(t, err)
	require.Len(t, production, 2)
	assert.Equal(t, "web1.example.com", production[0].Hostname)
	assert.Equal(t, "web2.example.com", production[1].Hostname)

	acceptance, err := cfg.HostsByStage("acceptance")
	require.NoError(t, err)
	assert.NotNil(t, acceptance)
	assert.Empty(t, acceptance)

	_, err = cfg.HostsByStage("invalid")
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
	assert.Contains(t, err.Error(), "'invalid' is not a valid stage")
}

func TestHostsByStage_EmptyConfig(t *testing.T) {
	cfg := &Config{}

	hosts, err := cfg.HostsByStage("test")
	require.NoError(t, err)
	assert.Empty(t, hosts)
	assert.Empty(t, cfg.Hosts())
}

func TestSubscribersAndListeners(t *testing.T) {
	cfg, err := Load(writeConfig(t, "stagehand.yaml", sampleConfig))
	require.NoError(t, err)

	subs := cfg.Subscribers()
	require.Len(t, subs, 1)
	assert.Equal(t, "maintenance_mode", subs[0].Class)
	assert.Equal(t, "major|minor", subs[0].Options["strategy"])
	assert.Equal(t, "web", subs[0].Options["subdirectory"])
	assert.NotContains(t, subs[0].Options, "class")

	listeners := cfg.Listeners()
	require.Len(t, listeners, 1)
	assert.Equal(t, ListenerConfig{Event: "log", Listener: "logger", Priority: 10}, listeners[0])
}

func TestHostConfig_ConnectionConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "stagehand.yaml", sampleConfig))
	require.NoError(t, err)

	conn := cfg.HostList[0].ConnectionConfig()
	assert.Equal(t, domain.ConnectionTypeSSH, conn.Type)
	assert.Equal(t, "10.0.0.5", conn.Hostname)
	assert.Equal(t, "deploy", conn.User)

	assert.True(t, cfg.HostList[2].ConnectionConfig().IsZero())
}
