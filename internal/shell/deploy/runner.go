package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/artpar/stagehand/internal/core/domain"
	"github.com/artpar/stagehand/internal/core/events"
	"github.com/artpar/stagehand/internal/shell/store"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Concurrency is the number of hosts prepared in parallel.
	Concurrency int
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{Concurrency: 4}
}

// Runner drives the release preparation lifecycle on hosts.
type Runner struct {
	dispatcher events.Dispatcher
	ledger     store.Ledger
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a runner. The ledger is optional; without it every
// host is prepared as a first deployment.
func NewRunner(d events.Dispatcher, ledger store.Ledger, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultRunnerConfig().Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		dispatcher: d,
		ledger:     ledger,
		config:     config,
		logger:     logger.With("component", "runner"),
	}
}

// Prepare runs the workspace and release preparation for version on every
// host. Hosts run independently: a failure on one host does not stop the
// others. The returned error joins the failures of all hosts.
func (r *Runner) Prepare(ctx context.Context, hosts []*domain.Host, version string) error {
	release, err := domain.NewRelease(version)
	if err != nil {
		return err
	}

	errs := make([]error, len(hosts))
	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for i, host := range hosts {
		i, host := i, host
		g.Go(func() error {
			errs[i] = r.prepareHost(ctx, host, release)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (r *Runner) prepareHost(ctx context.Context, host *domain.Host, release *domain.Release) error {
	defer host.Close()

	ctx = withHost(ctx, host.Hostname())
	logger := r.logger.With("host", host.Hostname(), "stage", host.Stage(), "version", release.Version())
	logger.Info("preparing release")

	workspace := domain.NewWorkspace(host)
	if err := r.dispatcher.Dispatch(ctx, events.PrepareWorkspace, events.NewWorkspaceEvent(workspace)); err != nil {
		logger.Error("workspace preparation failed", "error", err)
		r.record(ctx, host, release, err)
		return fmt.Errorf("%s: %s: %w", host.Hostname(), events.PrepareWorkspace, err)
	}

	current := r.currentRelease(ctx, host)
	event := events.NewPrepareDeployReleaseEvent(workspace, release, current)
	if err := r.dispatcher.Dispatch(ctx, events.PrepareDeployRelease, event); err != nil {
		logger.Error("release preparation failed", "error", err)
		r.record(ctx, host, release, err)
		return fmt.Errorf("%s: %s: %w", host.Hostname(), events.PrepareDeployRelease, err)
	}

	r.record(ctx, host, release, nil)
	logger.Info("release prepared")
	return nil
}

// currentRelease looks up the release live on the host, or nil when none
// was prepared before.
func (r *Runner) currentRelease(ctx context.Context, host *domain.Host) *domain.Release {
	if r.ledger == nil {
		return nil
	}

	rec, err := r.ledger.CurrentRelease(ctx, host.Hostname(), host.Stage())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("failed to look up current release", "host", host.Hostname(), "error", err)
		}
		return nil
	}

	release, err := rec.Release()
	if err != nil {
		r.logger.Warn("invalid release in ledger", "host", host.Hostname(), "error", err)
		return nil
	}
	return release
}

func (r *Runner) record(ctx context.Context, host *domain.Host, release *domain.Release, runErr error) {
	if r.ledger == nil {
		return
	}
	rec := store.NewReleaseRecord(host.Hostname(), host.Stage(), release.Version(), runErr)
	if err := r.ledger.RecordRelease(ctx, rec); err != nil {
		r.logger.Error("failed to record release", "host", host.Hostname(), "error", err)
	}
}
