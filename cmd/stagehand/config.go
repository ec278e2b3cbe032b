package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/artpar/stagehand/internal/shell/config"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitLedgerError = 2
	ExitDeployError = 3
	ExitUsageError  = 64
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	Code int
	Op   string
	Err  error
}

func (e *exitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *exitError) Unwrap() error {
	return e.Err
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsageError
}

// =============================================================================
// Config Loading
// =============================================================================

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &exitError{Code: ExitConfigError, Op: "configuration error", Err: err}
	}
	return cfg, nil
}

// ensureLedgerDir creates the parent directory of a file-backed ledger.
func ensureLedgerDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dsn), 0o755)
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger builds the process logger from the log section of the config.
func SetupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// logLevel maps a configured level name. Unknown names log at info.
func logLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
