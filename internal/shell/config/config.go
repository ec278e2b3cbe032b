// Package config loads the deployment configuration: the hosts to deploy to,
// the tasks and listeners to register, and the ambient settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/artpar/stagehand/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("config file could not be parsed")
	ErrConfigInvalid  = errors.New("config is invalid")
)

// DefaultConfigName is the file name searched for when no path is given.
const DefaultConfigName = "stagehand"

// EnvPrefix prefixes environment variable overrides, e.g. STAGEHAND_LOG_LEVEL.
const EnvPrefix = "STAGEHAND"

// =============================================================================
// Config Types
// =============================================================================

// Config holds the deployment configuration.
type Config struct {
	HostList   []HostConfig     `mapstructure:"hosts" validate:"dive"`
	Events     EventsConfig     `mapstructure:"events"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Log        LogConfig        `mapstructure:"log"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
}

// HostConfig describes one deployment target.
type HostConfig struct {
	Hostname   string           `mapstructure:"hostname" validate:"required,hostname_rfc1123|ip"`
	Stage      string           `mapstructure:"stage" validate:"required"`
	Path       string           `mapstructure:"path" validate:"required"`
	Connection ConnectionConfig `mapstructure:"connection"`
}

// ConnectionConfig describes how to reach a host. A host without a
// connection type cannot be deployed to.
type ConnectionConfig struct {
	Type           string        `mapstructure:"type" validate:"omitempty,oneof=ssh local"`
	Hostname       string        `mapstructure:"hostname" validate:"omitempty,hostname_rfc1123|ip"`
	Port           int           `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User           string        `mapstructure:"user"`
	IdentityFile   string        `mapstructure:"identity_file" validate:"required_if=Type ssh"`
	KnownHostsFile string        `mapstructure:"known_hosts_file"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// EventsConfig lists the tasks and listeners registered with the dispatcher.
type EventsConfig struct {
	Subscribers []SubscriberConfig `mapstructure:"subscribers" validate:"dive"`
	Listeners   []ListenerConfig   `mapstructure:"listeners" validate:"dive"`
}

// SubscriberConfig names a task and carries its options.
type SubscriberConfig struct {
	Class   string         `mapstructure:"class" validate:"required"`
	Options map[string]any `mapstructure:",remain"`
}

// ListenerConfig attaches a named listener to an event.
type ListenerConfig struct {
	Event    string `mapstructure:"event" validate:"required,oneof=prepare_workspace prepare_deploy_release log"`
	Listener string `mapstructure:"listener" validate:"required"`
	Priority int    `mapstructure:"priority"`
}

// LedgerConfig holds release ledger configuration.
type LedgerConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// DeploymentConfig holds run-wide deployment settings.
type DeploymentConfig struct {
	// Concurrency is the number of hosts prepared in parallel.
	Concurrency int `mapstructure:"concurrency" validate:"min=1"`
}

// =============================================================================
// Config Loading
// =============================================================================

var validate = validator.New()

// Load loads configuration from file and environment.
// An explicit configPath must exist. Without one, stagehand.{yaml,json,...}
// is looked up in the working directory and defaults are used when absent.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("ledger.dsn", "./data/stagehand.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("deployment.concurrency", 4)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && configPath == "":
			// No config in the working directory, use defaults
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		default:
			return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its schema.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return c.validateStages()
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(fields, ", "))
}

func (c *Config) validateStages() error {
	for i, h := range c.HostList {
		if _, err := domain.ParseStage(h.Stage); err != nil {
			return fmt.Errorf("%w: hosts[%d]: %w", ErrConfigInvalid, i, err)
		}
	}
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

// Hosts returns all configured hosts in configuration order.
func (c *Config) Hosts() []HostConfig {
	hosts := make([]HostConfig, len(c.HostList))
	copy(hosts, c.HostList)
	return hosts
}

// HostsByStage returns the hosts of one stage in configuration order.
func (c *Config) HostsByStage(stage string) ([]HostConfig, error) {
	s, err := domain.ParseStage(stage)
	if err != nil {
		return nil, err
	}

	hosts := []HostConfig{}
	for _, h := range c.HostList {
		if h.Stage == string(s) {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// Subscribers returns the configured task descriptors.
func (c *Config) Subscribers() []SubscriberConfig {
	return c.Events.Subscribers
}

// Listeners returns the configured listener descriptors.
func (c *Config) Listeners() []ListenerConfig {
	return c.Events.Listeners
}

// ConnectionConfig converts the host's connection settings.
func (h HostConfig) ConnectionConfig() domain.ConnectionConfig {
	return domain.ConnectionConfig{
		Type:           domain.ConnectionType(h.Connection.Type),
		Hostname:       h.Connection.Hostname,
		Port:           h.Connection.Port,
		User:           h.Connection.User,
		IdentityFile:   h.Connection.IdentityFile,
		KnownHostsFile: h.Connection.KnownHostsFile,
		Timeout:        h.Connection.Timeout,
	}
}
