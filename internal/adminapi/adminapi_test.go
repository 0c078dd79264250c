// Copyright 2025 James Ross
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/membackend"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/runtime"
)

func setupTestServer(t *testing.T) (*Server, *runtime.Runtime) {
	t.Helper()
	queue, err := queuedef.Create("emails").
		AddJob("sendWelcome", queuedef.JobSpec{
			Handler: func(_ context.Context, execCtx backend.ExecutionContext) (any, error) {
				return execCtx.Job, nil
			},
		}).
		Build()
	require.NoError(t, err)

	rt, err := runtime.Create().
		WithAdapter(membackend.New()).
		WithService("billing").
		WithEnvironment("test").
		WithContext(func(ctx context.Context) (any, error) { return nil, nil }).
		AddQueue(queue).
		Build(context.Background())
	require.NoError(t, err)

	return NewServer(rt, nil), rt
}

func TestListQueues(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/queues", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["queues"], "emails")
}

func TestGetQueue(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/queues/emails", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "info")
	require.Contains(t, body, "counts")
}

func TestGetQueueUnknownStillReturnsOK(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/queues/ghost", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	// membackend.GetQueueInfo returns an empty QueueInfo rather than an
	// error for a name it has never seen; the admin surface mirrors that.
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetJob(t *testing.T) {
	s, rt := setupTestServer(t)
	ctx := context.Background()

	id, err := rt.Queue("emails").Job("sendWelcome").Dispatch(ctx, nil, runtime.DispatchOptions{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/queues/emails/jobs/"+id, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rep backend.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Equal(t, id, rep.ID)
}

func TestGetJobMissingReturns404(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/queues/emails/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListWorkers(t *testing.T) {
	s, rt := setupTestServer(t)
	ctx := context.Background()

	_, err := rt.Worker().AddQueue("emails").Start(ctx)
	require.NoError(t, err)
	defer rt.Shutdown(ctx)

	// Give the worker a moment to register before listing it back.
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/workers", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Workers []workerView `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Workers, 1)
	require.Contains(t, body.Workers[0].Queues, "emails")
}
