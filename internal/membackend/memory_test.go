// Copyright 2025 James Ross
package membackend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

func registerEcho(t *testing.T, b *Backend, queue, job string) {
	t.Helper()
	err := b.RegisterJob(context.Background(), queue, backend.JobDefinition{
		Name:     job,
		Attempts: 3,
		Handler: func(_ context.Context, execCtx backend.ExecutionContext) (any, error) {
			return execCtx.Job, nil
		},
	})
	require.NoError(t, err)
}

func waitForStatus(t *testing.T, b *Backend, queue, id string, want backend.Status) backend.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := b.GetJob(context.Background(), queue, id)
		require.NoError(t, err)
		if rec.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %q never reached status %q", id, want)
	return backend.Record{}
}

func TestDispatchAndProcessHappyPath(t *testing.T) {
	b := New()
	registerEcho(t, b, "emails", "sendWelcome")

	ctx := context.Background()
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "emails", Job: "sendWelcome"})
	require.NoError(t, err)

	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"emails"}})
	require.NoError(t, err)

	rec := waitForStatus(t, b, "emails", id, backend.StatusCompleted)
	require.Equal(t, "sendWelcome", rec.Result)
	require.Equal(t, 100, rec.Progress)
}

func TestMetricsIncrementOnDispatchAndCompletion(t *testing.T) {
	b := New()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	b.SetMetrics(metrics)
	registerEcho(t, b, "emails", "sendWelcome")

	ctx := context.Background()
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "emails", Job: "sendWelcome"})
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.JobsEnqueued.WithLabelValues("emails", "sendWelcome")))

	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"emails"}})
	require.NoError(t, err)

	waitForStatus(t, b, "emails", id, backend.StatusCompleted)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.JobsStarted.WithLabelValues("emails", "sendWelcome")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.JobsCompleted.WithLabelValues("emails", "sendWelcome")))
}

func TestDispatchUnregisteredJobFails(t *testing.T) {
	b := New()
	_, err := b.Dispatch(context.Background(), backend.DispatchParams{Queue: "emails", Job: "missing"})
	require.Error(t, err)
}

func TestRetryThenSucceed(t *testing.T) {
	b := New()
	var attempts int
	err := b.RegisterJob(context.Background(), "payments", backend.JobDefinition{
		Name:     "charge",
		Attempts: 3,
		Handler: func(_ context.Context, _ backend.ExecutionContext) (any, error) {
			attempts++
			if attempts < 2 {
				return nil, errors.New("card declined")
			}
			return "charged", nil
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "payments", Job: "charge"})
	require.NoError(t, err)
	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"payments"}})
	require.NoError(t, err)

	rec := waitForStatus(t, b, "payments", id, backend.StatusCompleted)
	require.Equal(t, 2, rec.AttemptsMade)
}

func TestFinalFailureAfterMaxAttempts(t *testing.T) {
	b := New()
	err := b.RegisterJob(context.Background(), "payments", backend.JobDefinition{
		Name:     "charge",
		Attempts: 2,
		Handler: func(_ context.Context, _ backend.ExecutionContext) (any, error) {
			return nil, errors.New("card declined")
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "payments", Job: "charge"})
	require.NoError(t, err)
	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"payments"}})
	require.NoError(t, err)

	rec := waitForStatus(t, b, "payments", id, backend.StatusFailed)
	require.Equal(t, 2, rec.AttemptsMade)
	require.Contains(t, rec.Error, "card declined")
}

func TestPriorityOrdering(t *testing.T) {
	b := New()
	var order []string
	done := make(chan struct{}, 3)
	err := b.RegisterJob(context.Background(), "batch", backend.JobDefinition{
		Name: "work",
		Handler: func(_ context.Context, execCtx backend.ExecutionContext) (any, error) {
			order = append(order, execCtx.JobID)
			done <- struct{}{}
			return nil, nil
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = b.Dispatch(ctx, backend.DispatchParams{Queue: "batch", Job: "work", JobID: "low", Priority: 1})
	require.NoError(t, err)
	_, err = b.Dispatch(ctx, backend.DispatchParams{Queue: "batch", Job: "work", JobID: "high", Priority: 10})
	require.NoError(t, err)
	_, err = b.Dispatch(ctx, backend.DispatchParams{Queue: "batch", Job: "work", JobID: "mid", Priority: 5})
	require.NoError(t, err)

	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"batch"}, Concurrency: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	require.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestScheduleDelayedPromotesToWaiting(t *testing.T) {
	b := New()
	registerEcho(t, b, "reminders", "ping")

	ctx := context.Background()
	at := time.Now().Add(50 * time.Millisecond)
	id, err := b.Schedule(ctx, backend.ScheduleParams{
		DispatchParams: backend.DispatchParams{Queue: "reminders", Job: "ping"},
		At:             &at,
	})
	require.NoError(t, err)

	rec, err := b.GetJob(ctx, "reminders", id)
	require.NoError(t, err)
	require.Equal(t, backend.StatusDelayed, rec.Status)

	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"reminders"}})
	require.NoError(t, err)
	waitForStatus(t, b, "reminders", id, backend.StatusCompleted)
}

func TestScheduleRejectsPastTime(t *testing.T) {
	b := New()
	registerEcho(t, b, "reminders", "ping")
	past := time.Now().Add(-time.Minute)
	_, err := b.Schedule(context.Background(), backend.ScheduleParams{
		DispatchParams: backend.DispatchParams{Queue: "reminders", Job: "ping"},
		At:             &past,
	})
	require.Error(t, err)
}

func TestPauseQueuePreventsDispatchFromRunning(t *testing.T) {
	b := New()
	registerEcho(t, b, "emails", "sendWelcome")
	ctx := context.Background()

	require.NoError(t, b.PauseQueue(ctx, "emails"))
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "emails", Job: "sendWelcome"})
	require.NoError(t, err)

	rec, err := b.GetJob(ctx, "emails", id)
	require.NoError(t, err)
	require.Equal(t, backend.StatusPaused, rec.Status)

	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"emails"}})
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	rec, err = b.GetJob(ctx, "emails", id)
	require.NoError(t, err)
	require.Equal(t, backend.StatusPaused, rec.Status)

	require.NoError(t, b.ResumeQueue(ctx, "emails"))
	waitForStatus(t, b, "emails", id, backend.StatusCompleted)
}

func TestDrainQueueRemovesWaitingJobs(t *testing.T) {
	b := New()
	registerEcho(t, b, "emails", "sendWelcome")
	ctx := context.Background()

	require.NoError(t, b.PauseQueue(ctx, "emails"))
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "emails", Job: "sendWelcome"})
	require.NoError(t, err)

	require.NoError(t, b.DrainQueue(ctx, "emails"))
	_, err = b.GetJob(ctx, "emails", id)
	require.Error(t, err)
}

func TestRetryAllInQueueResetsAttempts(t *testing.T) {
	b := New()
	err := b.RegisterJob(context.Background(), "payments", backend.JobDefinition{
		Name:     "charge",
		Attempts: 1,
		Handler: func(_ context.Context, _ backend.ExecutionContext) (any, error) {
			return nil, errors.New("always fails")
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	id, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "payments", Job: "charge"})
	require.NoError(t, err)
	_, err = b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"payments"}})
	require.NoError(t, err)

	waitForStatus(t, b, "payments", id, backend.StatusFailed)

	n, err := b.RetryAllInQueue(ctx, "payments")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec, err := b.GetJob(ctx, "payments", id)
	require.NoError(t, err)
	require.Equal(t, 0, rec.AttemptsMade)
}

func TestPublishSubscribeDeliversInOrder(t *testing.T) {
	b := New()
	ctx := context.Background()
	var received []string

	unsub, err := b.SubscribeEvent(ctx, "events", func(event backend.LifecycleEvent) {
		received = append(received, event.Type)
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, b.PublishEvent(ctx, "events", backend.LifecycleEvent{Type: "a"}))
	require.NoError(t, b.PublishEvent(ctx, "events", backend.LifecycleEvent{Type: "b"}))
	require.Equal(t, []string{"a", "b"}, received)
}

func TestShutdownClosesWorkers(t *testing.T) {
	b := New()
	registerEcho(t, b, "emails", "sendWelcome")
	ctx := context.Background()

	w, err := b.CreateWorker(ctx, backend.WorkerConfig{Queues: []string{"emails"}})
	require.NoError(t, err)

	require.NoError(t, b.Shutdown(ctx))
	require.True(t, w.IsClosed())
}

func TestSearchJobsFiltersByQueueAndStatus(t *testing.T) {
	b := New()
	registerEcho(t, b, "emails", "sendWelcome")
	ctx := context.Background()

	_, err := b.Dispatch(ctx, backend.DispatchParams{Queue: "emails", Job: "sendWelcome", JobID: "a"})
	require.NoError(t, err)
	_, err = b.Dispatch(ctx, backend.DispatchParams{Queue: "emails", Job: "sendWelcome", JobID: "b"})
	require.NoError(t, err)

	results, err := b.SearchJobs(ctx, backend.SearchJobsQuery{Queue: "emails", Status: []backend.Status{backend.StatusWaiting}})
	require.NoError(t, err)
	require.Len(t, results, 2)
}
