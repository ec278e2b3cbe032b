package connection

import (
	"fmt"
	"log/slog"

	"github.com/artpar/stagehand/internal/core/domain"
)

// New creates the adapter described by cfg for the named host.
func New(hostname string, cfg domain.ConnectionConfig, logger *slog.Logger) (domain.Connection, error) {
	switch cfg.Type {
	case domain.ConnectionTypeLocal:
		return NewLocalAdapter(hostname, logger), nil
	case domain.ConnectionTypeSSH:
		sshCfg := DefaultSSHConfig()
		sshCfg.Host = hostname
		if cfg.Hostname != "" {
			sshCfg.Host = cfg.Hostname
		}
		if cfg.Port != 0 {
			sshCfg.Port = cfg.Port
		}
		if cfg.Timeout != 0 {
			sshCfg.ConnectTimeout = cfg.Timeout
		}
		sshCfg.User = cfg.User
		sshCfg.IdentityFile = cfg.IdentityFile
		sshCfg.KnownHostsFile = cfg.KnownHostsFile
		return NewSSHAdapter(sshCfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}

// Factory returns a domain.ConnectionFactory that builds adapters with New.
func Factory(logger *slog.Logger) domain.ConnectionFactory {
	return func(hostname string, cfg domain.ConnectionConfig) (domain.Connection, error) {
		return New(hostname, cfg, logger)
	}
}
