package events

import (
	"context"
	"log/slog"
)

// Phase brackets one unit of listener work between a started and an end
// LogEvent. End must run on every exit path, so callers defer it:
//
//	phase := events.BeginPhase(ctx, d, name, "maintenance_mode", "Uploading maintenance page.")
//	defer phase.End()
//	...
//	if failed {
//	    phase.Fail("Failed uploading maintenance page.")
//	    return nil
//	}
//	phase.Complete("Uploaded maintenance page.")
type Phase struct {
	ctx        context.Context
	dispatcher Dispatcher
	source     Name
	task       string

	status  Status
	message string
	attrs   []any
	ended   bool
}

// BeginPhase dispatches the started event and returns the open phase.
func BeginPhase(ctx context.Context, d Dispatcher, source Name, task, message string, attrs ...any) *Phase {
	p := &Phase{
		ctx:        ctx,
		dispatcher: d,
		source:     source,
		task:       task,
		status:     StatusCompleted,
		message:    message,
	}
	p.dispatch(slog.LevelInfo, message, StatusStarted, attrs)
	return p
}

// Info reports progress within the phase.
func (p *Phase) Info(message string, attrs ...any) {
	p.dispatch(slog.LevelInfo, message, StatusNone, attrs)
}

// Warn reports a tolerated problem within the phase.
func (p *Phase) Warn(message string, attrs ...any) {
	p.dispatch(slog.LevelWarn, message, StatusNone, attrs)
}

// Complete sets the message End reports on success.
func (p *Phase) Complete(message string, attrs ...any) {
	p.status = StatusCompleted
	p.message = message
	p.attrs = attrs
}

// Fail marks the phase failed; End reports message.
func (p *Phase) Fail(message string, attrs ...any) {
	p.status = StatusFailed
	p.message = message
	p.attrs = attrs
}

// Failed reports whether Fail was called.
func (p *Phase) Failed() bool {
	return p.status == StatusFailed
}

// End dispatches the end event. Calling it more than once has no effect.
func (p *Phase) End() {
	if p.ended {
		return
	}
	p.ended = true

	level := slog.LevelInfo
	if p.status == StatusFailed {
		level = slog.LevelError
	}
	p.dispatch(level, p.message, p.status, p.attrs)
}

func (p *Phase) dispatch(level slog.Level, message string, status Status, attrs []any) {
	// Progress reports never abort the phase
	_ = p.dispatcher.Dispatch(p.ctx, Log, &LogEvent{
		Level:   level,
		Message: message,
		Source:  p.source,
		Task:    p.task,
		Status:  status,
		Attrs:   attrs,
	})
}

// Skip dispatches a single skipped event for work that was not needed.
func Skip(ctx context.Context, d Dispatcher, source Name, task, message string, attrs ...any) error {
	return d.Dispatch(ctx, Log, &LogEvent{
		Level:   slog.LevelInfo,
		Message: message,
		Source:  source,
		Task:    task,
		Status:  StatusSkipped,
		Attrs:   attrs,
	})
}
