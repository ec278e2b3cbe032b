package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/stagehand/internal/core/domain"
	"github.com/artpar/stagehand/internal/shell/config"
	"github.com/artpar/stagehand/internal/shell/connection"
	"github.com/artpar/stagehand/internal/shell/deploy"
	"github.com/artpar/stagehand/internal/shell/store"
	"github.com/artpar/stagehand/internal/shell/task"
)

// newRootCmd builds the command tree writing to stdout and stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "stagehand",
		Short:         "Prepare releases on the hosts of a deployment stage",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./"+config.DefaultConfigName+".yaml)")

	hostsCmd := &cobra.Command{
		Use:   "hosts [stage]",
		Short: "List the configured hosts, optionally of one stage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHosts(cmd.OutOrStdout(), configPath, args)
		},
	}

	prepareCmd := &cobra.Command{
		Use:   "prepare <stage> <version>",
		Short: "Prepare the workspace and release transition on every host of a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPrepare(ctx, cmd.ErrOrStderr(), configPath, args[0], args[1])
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stagehand %s (built %s)\n", Version, BuildTime)
		},
	}

	rootCmd.AddCommand(hostsCmd, prepareCmd, versionCmd)
	return rootCmd
}

// =============================================================================
// hosts
// =============================================================================

type hostView struct {
	Hostname   string `yaml:"hostname"`
	Stage      string `yaml:"stage"`
	Path       string `yaml:"path"`
	Connection string `yaml:"connection,omitempty"`
}

func runHosts(w io.Writer, configPath string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	hosts := cfg.Hosts()
	if len(args) == 1 {
		hosts, err = cfg.HostsByStage(args[0])
		if err != nil {
			return &exitError{Code: ExitConfigError, Op: "hosts", Err: err}
		}
	}

	views := make([]hostView, 0, len(hosts))
	for _, h := range hosts {
		views = append(views, hostView{
			Hostname:   h.Hostname,
			Stage:      h.Stage,
			Path:       h.Path,
			Connection: h.Connection.Type,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return err
	}
	return enc.Close()
}

// =============================================================================
// prepare
// =============================================================================

func runPrepare(ctx context.Context, logOut io.Writer, configPath, stageName, version string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	stage, err := domain.ParseStage(stageName)
	if err != nil {
		return &exitError{Code: ExitConfigError, Op: "prepare", Err: err}
	}

	logger := SetupLogger(cfg.Log, logOut)
	logger.Info("starting stagehand",
		"version", Version,
		"config", configPath,
		"stage", stage,
		"release", version,
	)

	if err := ensureLedgerDir(cfg.Ledger.DSN); err != nil {
		return &exitError{Code: ExitLedgerError, Op: "open ledger", Err: err}
	}
	ledger, err := store.NewSQLiteLedger(cfg.Ledger.DSN)
	if err != nil {
		return &exitError{Code: ExitLedgerError, Op: "open ledger", Err: err}
	}
	defer ledger.Close()

	env, err := deploy.Bootstrap(cfg, task.DefaultRegistry(), connection.Factory(logger), logger)
	if err != nil {
		return &exitError{Code: ExitConfigError, Op: "bootstrap", Err: err}
	}
	defer func() {
		if err := task.CleanupAssets(); err != nil {
			logger.Warn("failed to remove maintenance assets", "error", err)
		}
	}()

	hosts := env.HostsByStage(stage)
	if len(hosts) == 0 {
		return &exitError{Code: ExitConfigError, Op: "prepare", Err: fmt.Errorf("no hosts configured for stage %s", stage)}
	}

	runner := deploy.NewRunner(env.Dispatcher, ledger, deploy.RunnerConfig{Concurrency: cfg.Deployment.Concurrency}, logger)
	if err := runner.Prepare(ctx, hosts, version); err != nil {
		return &exitError{Code: ExitDeployError, Op: "prepare", Err: err}
	}

	logger.Info("release prepared", "stage", stage, "hosts", len(hosts), "release", version)
	return nil
}
