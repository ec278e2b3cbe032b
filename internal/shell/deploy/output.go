package deploy

import (
	"context"
	"log/slog"

	"github.com/artpar/stagehand/internal/core/events"
)

type hostKey struct{}

// withHost tags ctx with the host a dispatch runs for.
func withHost(ctx context.Context, hostname string) context.Context {
	return context.WithValue(ctx, hostKey{}, hostname)
}

func hostFrom(ctx context.Context) string {
	hostname, _ := ctx.Value(hostKey{}).(string)
	return hostname
}

// OutputListener writes progress reports dispatched by tasks to a logger.
type OutputListener struct {
	logger *slog.Logger
}

// NewOutputListener creates an output listener.
func NewOutputListener(logger *slog.Logger) *OutputListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutputListener{logger: logger}
}

// Listen handles events.Log dispatches. Other payloads are ignored.
func (l *OutputListener) Listen(ctx context.Context, event events.Event, _ events.Name, _ events.Dispatcher) error {
	e, ok := event.(*events.LogEvent)
	if !ok {
		return nil
	}

	attrs := make([]any, 0, 8+len(e.Attrs))
	if hostname := hostFrom(ctx); hostname != "" {
		attrs = append(attrs, "host", hostname)
	}
	attrs = append(attrs, "event", string(e.Source), "task", e.Task)
	if e.Status != events.StatusNone {
		attrs = append(attrs, "status", string(e.Status))
	}
	attrs = append(attrs, e.Attrs...)

	l.logger.Log(ctx, e.Level, e.Message, attrs...)
	return nil
}
