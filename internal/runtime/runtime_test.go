// Copyright 2025 James Ross
package runtime

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/membackend"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

func noopContext(_ context.Context) (any, error) { return nil, nil }

func echoHandler(_ context.Context, execCtx backend.ExecutionContext) (any, error) {
	return execCtx.Job, nil
}

func TestBuildRequiresAdapter(t *testing.T) {
	_, err := Create().WithService("billing").WithEnvironment("test").WithContext(noopContext).Build(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeAdapterRequired))
}

func TestBuildRequiresService(t *testing.T) {
	_, err := Create().WithAdapter(membackend.New()).WithEnvironment("test").WithContext(noopContext).Build(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeServiceRequired))
}

func TestBuildRequiresEnvironment(t *testing.T) {
	_, err := Create().WithAdapter(membackend.New()).WithService("billing").WithContext(noopContext).Build(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeConfigurationInvalid))
}

func TestBuildRequiresContextFactory(t *testing.T) {
	_, err := Create().WithAdapter(membackend.New()).WithService("billing").WithEnvironment("test").Build(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeContextRequired))
}

func TestAddScopeTwiceFails(t *testing.T) {
	_, err := Create().
		WithAdapter(membackend.New()).
		WithService("billing").
		WithEnvironment("test").
		WithContext(noopContext).
		AddScope("tenant", true, "tenant id").
		AddScope("org", true, "org id").
		Build(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeScopeAlreadyDefined))
}

func buildTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	queue, err := queuedef.Create("emails").
		AddJob("send", queuedef.JobSpec{Handler: echoHandler}).
		Build()
	require.NoError(t, err)

	rt, err := Create().
		WithAdapter(membackend.New()).
		WithService("billing").
		WithEnvironment("test").
		WithContext(noopContext).
		AddQueue(queue).
		Build(context.Background())
	require.NoError(t, err)
	return rt
}

func TestHasQueue(t *testing.T) {
	rt := buildTestRuntime(t)
	require.True(t, rt.HasQueue("emails"))
	require.False(t, rt.HasQueue("sms"))
}

func TestDispatchAndGet(t *testing.T) {
	rt := buildTestRuntime(t)
	ctx := context.Background()

	id, err := rt.Queue("emails").Job("send").Dispatch(ctx, "hello", DispatchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := rt.Queue("emails").Job("send").Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, rec.ID)
}

func TestDispatchUnregisteredJobFails(t *testing.T) {
	rt := buildTestRuntime(t)
	_, err := rt.Queue("emails").Job("ghost").Dispatch(context.Background(), nil, DispatchOptions{})
	require.Error(t, err)
}

func TestScopeResolutionRequiresDeclaredScope(t *testing.T) {
	rt := buildTestRuntime(t)
	_, err := rt.Scope("tenant", "acme")
	require.True(t, ignitererr.Is(err, ignitererr.CodeScopeNotDeclared))
}

func TestWorkerBuilderRejectsUnknownQueue(t *testing.T) {
	rt := buildTestRuntime(t)
	_, err := rt.Worker().AddQueue("sms").Start(context.Background())
	require.True(t, ignitererr.Is(err, ignitererr.CodeQueueNotFound))
}

func TestWithMetricsIsWiredToTheAdapter(t *testing.T) {
	queue, err := queuedef.Create("emails").
		AddJob("send", queuedef.JobSpec{Handler: echoHandler}).
		Build()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	rt, err := Create().
		WithAdapter(membackend.New()).
		WithService("billing").
		WithEnvironment("test").
		WithContext(noopContext).
		WithMetrics(metrics).
		AddQueue(queue).
		Build(context.Background())
	require.NoError(t, err)

	_, err = rt.Queue("emails").Job("send").Dispatch(context.Background(), "hello", DispatchOptions{})
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.JobsEnqueued.WithLabelValues("emails", "send")))
}
