package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type testEvent struct {
	Propagation
}

// recordingListener appends its label to calls when invoked.
func recordingListener(label string, calls *[]string) Listener {
	return func(context.Context, Event, Name, Dispatcher) error {
		*calls = append(*calls, label)
		return nil
	}
}

type staticSubscriber map[Name][]Subscription

func (s staticSubscriber) Subscriptions() map[Name][]Subscription {
	return s
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegister_UnknownEvent(t *testing.T) {
	d := NewEventDispatcher()

	err := d.Register(Name("deploy"), recordingListener("a", new([]string)), 0)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestRegister_NilListener(t *testing.T) {
	d := NewEventDispatcher()

	assert.Error(t, d.Register(PrepareWorkspace, nil, 0))
}

func TestRegister_SealedAfterDispatch(t *testing.T) {
	d := NewEventDispatcher()
	require.NoError(t, d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{}))

	err := d.Register(PrepareWorkspace, recordingListener("a", new([]string)), 0)
	assert.ErrorIs(t, err, ErrDispatcherSealed)
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestDispatch_PriorityOrder(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("low", &calls), -10))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("high", &calls), 10))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("default", &calls), 0))

	require.NoError(t, d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{}))

	assert.Equal(t, []string{"high", "default", "low"}, calls)
}

func TestDispatch_TiesKeepRegistrationOrder(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("first", &calls), 5))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("second", &calls), 5))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("top", &calls), 6))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("third", &calls), 5))

	require.NoError(t, d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{}))

	assert.Equal(t, []string{"top", "first", "second", "third"}, calls)
}

func TestDispatch_OnlyNamedEvent(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("workspace", &calls), 0))
	require.NoError(t, d.Register(PrepareDeployRelease, recordingListener("release", &calls), 0))

	require.NoError(t, d.Dispatch(context.Background(), PrepareDeployRelease, &testEvent{}))

	assert.Equal(t, []string{"release"}, calls)
}

func TestDispatch_NoListeners(t *testing.T) {
	d := NewEventDispatcher()

	assert.NoError(t, d.Dispatch(context.Background(), Log, &LogEvent{}))
	assert.False(t, d.HasListeners(Log))
}

func TestDispatch_StopPropagation(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	require.NoError(t, d.Register(PrepareWorkspace, func(_ context.Context, e Event, _ Name, _ Dispatcher) error {
		calls = append(calls, "stopper")
		e.StopPropagation()
		return nil
	}, 10))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("skipped", &calls), 0))

	event := &testEvent{}
	require.NoError(t, d.Dispatch(context.Background(), PrepareWorkspace, event))

	assert.Equal(t, []string{"stopper"}, calls)
	assert.True(t, event.IsPropagationStopped())
}

func TestDispatch_ErrorAbortsRemainingListeners(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	d := NewEventDispatcher()
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("before", &calls), 10))
	require.NoError(t, d.Register(PrepareWorkspace, func(context.Context, Event, Name, Dispatcher) error {
		calls = append(calls, "failing")
		return boom
	}, 5))
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("after", &calls), 0))

	err := d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"before", "failing"}, calls)
}

func TestDispatch_ListenerReceivesNameAndDispatcher(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	require.NoError(t, d.Register(Log, recordingListener("log", &calls), 0))
	require.NoError(t, d.Register(PrepareWorkspace, func(ctx context.Context, _ Event, name Name, nested Dispatcher) error {
		assert.Equal(t, PrepareWorkspace, name)
		assert.Same(t, d, nested)
		calls = append(calls, "workspace")
		return nested.Dispatch(ctx, Log, &LogEvent{Message: "nested"})
	}, 0))

	require.NoError(t, d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{}))

	assert.Equal(t, []string{"workspace", "log"}, calls)
}

func TestDispatch_CanceledContext(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	require.NoError(t, d.Register(PrepareWorkspace, recordingListener("a", &calls), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, PrepareWorkspace, &testEvent{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestDispatch_ConcurrentReads(t *testing.T) {
	d := NewEventDispatcher()
	var mu sync.Mutex
	count := 0
	require.NoError(t, d.Register(PrepareWorkspace, func(context.Context, Event, Name, Dispatcher) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, 0))
	d.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}

// =============================================================================
// Subscriber Tests
// =============================================================================

func TestAddSubscriber(t *testing.T) {
	var calls []string
	d := NewEventDispatcher()
	sub := staticSubscriber{
		PrepareWorkspace: {
			{Listener: recordingListener("a", &calls), Priority: 0},
			{Listener: recordingListener("b", &calls), Priority: 20},
		},
		PrepareDeployRelease: {
			{Listener: recordingListener("c", &calls)},
		},
	}

	require.NoError(t, d.AddSubscriber(sub))
	require.NoError(t, d.Dispatch(context.Background(), PrepareWorkspace, &testEvent{}))

	assert.Equal(t, []string{"b", "a"}, calls)
	assert.Len(t, d.Listeners(PrepareDeployRelease), 1)
}

func TestAddSubscriber_UnknownEvent(t *testing.T) {
	d := NewEventDispatcher()
	sub := staticSubscriber{
		PrepareWorkspace: {{Listener: recordingListener("a", new([]string))}},
		Name("rollback"): {{Listener: recordingListener("b", new([]string))}},
	}

	err := d.AddSubscriber(sub)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.False(t, d.HasListeners(PrepareWorkspace))
}

func TestParseName(t *testing.T) {
	for _, name := range Names() {
		got, err := ParseName(string(name))
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}

	_, err := ParseName("accompli.prepare_workspace")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
