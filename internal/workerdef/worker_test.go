// Copyright 2025 James Ross
package workerdef

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

type fakeKnownQueues map[string]bool

func (f fakeKnownQueues) HasQueue(name string) bool { return f[name] }

func fakeStarter(t *testing.T, captured *backend.WorkerConfig) func(ctx context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error) {
	t.Helper()
	return func(_ context.Context, config backend.WorkerConfig) (backend.WorkerHandle, error) {
		*captured = config
		return nil, nil
	}
}

func TestAddQueueRejectsUnregisteredQueue(t *testing.T) {
	b := New(fakeKnownQueues{"emails": true}, fakeStarter(t, &backend.WorkerConfig{}))
	_, err := b.AddQueue("sms").Start(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeQueueNotFound))
}

func TestAddQueueDeduplicates(t *testing.T) {
	var captured backend.WorkerConfig
	b := New(fakeKnownQueues{"emails": true}, fakeStarter(t, &captured))
	_, err := b.AddQueue("emails").AddQueue("emails").Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"emails"}, captured.Queues)
}

func TestDefaultsOnlyAppliesWhenUnset(t *testing.T) {
	var captured backend.WorkerConfig
	b := New(fakeKnownQueues{"emails": true}, fakeStarter(t, &captured))
	_, err := b.AddQueue("emails").
		WithConcurrency(8).
		Defaults(2, &backend.Limiter{Max: 1, Duration: 1}).
		Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, captured.Concurrency)
}

func TestWithConcurrencyRejectsNonPositive(t *testing.T) {
	b := New(fakeKnownQueues{"emails": true}, fakeStarter(t, &backend.WorkerConfig{}))
	_, err := b.AddQueue("emails").WithConcurrency(0).Start(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeConfigurationInvalid))
}

func TestWithLimiterRejectsZeroFields(t *testing.T) {
	b := New(fakeKnownQueues{"emails": true}, fakeStarter(t, &backend.WorkerConfig{}))
	_, err := b.AddQueue("emails").WithLimiter(backend.Limiter{Max: 0, Duration: 0}).Start(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeConfigurationInvalid))
}

func TestHooksArePassedThrough(t *testing.T) {
	var captured backend.WorkerConfig
	b := New(fakeKnownQueues{"emails": true}, fakeStarter(t, &captured))
	called := false
	_, err := b.AddQueue("emails").
		OnSuccess(func(_ context.Context, _ backend.Record) { called = true }).
		Start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured.Hooks.OnSuccess)
	captured.Hooks.OnSuccess(context.Background(), backend.Record{})
	require.True(t, called)
}
