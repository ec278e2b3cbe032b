// Package deploy wires configuration into a ready dispatcher and runs the
// release preparation on each host.
package deploy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/stagehand/internal/core/domain"
	"github.com/artpar/stagehand/internal/core/events"
	"github.com/artpar/stagehand/internal/shell/config"
	"github.com/artpar/stagehand/internal/shell/task"
)

// ErrUnknownListener is returned for listener names without a built-in.
var ErrUnknownListener = errors.New("unknown listener")

// LoggerListenerName is the built-in listener writing progress reports.
const LoggerListenerName = "logger"

// Environment is the bootstrapped deployment: hosts and a sealed dispatcher
// with every task and listener registered.
type Environment struct {
	Hosts      []*domain.Host
	Tasks      []task.Task
	Dispatcher *events.EventDispatcher
}

// Bootstrap builds the hosts in configuration order and registers the
// configured tasks and listeners. The output listener is registered for
// log events unless the configuration attaches its own.
func Bootstrap(cfg *config.Config, registry *task.Registry, factory domain.ConnectionFactory, logger *slog.Logger) (*Environment, error) {
	if logger == nil {
		logger = slog.Default()
	}

	env := &Environment{Dispatcher: events.NewEventDispatcher()}

	for i, hc := range cfg.Hosts() {
		stage, err := domain.ParseStage(hc.Stage)
		if err != nil {
			return nil, fmt.Errorf("host %d (%s): %w", i, hc.Hostname, err)
		}
		host, err := domain.NewHost(hc.Hostname, stage, hc.Path, hc.ConnectionConfig(), factory)
		if err != nil {
			return nil, fmt.Errorf("host %d (%s): %w", i, hc.Hostname, err)
		}
		env.Hosts = append(env.Hosts, host)
	}

	for _, sc := range cfg.Subscribers() {
		t, err := registry.Build(sc.Class, sc.Options)
		if err != nil {
			return nil, err
		}
		if err := env.Dispatcher.AddSubscriber(t); err != nil {
			return nil, fmt.Errorf("register task %s: %w", t.Name(), err)
		}
		env.Tasks = append(env.Tasks, t)
	}

	builtins := map[string]events.Listener{
		LoggerListenerName: NewOutputListener(logger).Listen,
	}
	for _, lc := range cfg.Listeners() {
		name, err := events.ParseName(lc.Event)
		if err != nil {
			return nil, err
		}
		listener, ok := builtins[lc.Listener]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownListener, lc.Listener)
		}
		if err := env.Dispatcher.Register(name, listener, lc.Priority); err != nil {
			return nil, fmt.Errorf("register listener %s: %w", lc.Listener, err)
		}
	}
	if !env.Dispatcher.HasListeners(events.Log) {
		if err := env.Dispatcher.Register(events.Log, builtins[LoggerListenerName], 0); err != nil {
			return nil, err
		}
	}

	env.Dispatcher.Seal()
	return env, nil
}

// HostsByStage returns the hosts of one stage in configuration order.
func (e *Environment) HostsByStage(stage domain.Stage) []*domain.Host {
	var hosts []*domain.Host
	for _, h := range e.Hosts {
		if h.Stage() == stage {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
