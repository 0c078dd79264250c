// Copyright 2025 James Ross
package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopLoggerNeverPanics(t *testing.T) {
	var log Logger = NoopLogger{}
	require.NotPanics(t, func() {
		log.Debug("x", nil)
		log.Success("x", map[string]any{"a": 1})
		log.Error("x", nil)
	})
}

func TestNoopTelemetryReportsServiceAndEnvironment(t *testing.T) {
	var tel Telemetry = NoopTelemetry{Svc: "billing", Env: "staging"}
	require.Equal(t, "billing", tel.Service())
	require.Equal(t, "staging", tel.Environment())
	require.NotPanics(t, func() { tel.Emit("job.dispatched", Attrs{"id": "1"}, LevelDebug) })
}

func TestNewZapLoggerBuildsAtEachLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "warn", "error", "info", "bogus"} {
		log, err := NewZapLogger(lvl)
		require.NoError(t, err)
		require.NotNil(t, log)
		require.NotPanics(t, func() { log.Success("built", map[string]any{"level": lvl}) })
	}
}

func TestZapLoggerRecoversFromNilUnderlying(t *testing.T) {
	var log *ZapLogger
	require.NotPanics(t, func() { log.Debug("x", nil) })
}

func TestOTelTelemetryEmitIsNoopSafeWithoutProvider(t *testing.T) {
	tel := NewOTelTelemetry("billing", "staging")
	require.Equal(t, "billing", tel.Service())
	require.Equal(t, "staging", tel.Environment())
	require.NotPanics(t, func() {
		tel.Emit("job.completed", Attrs{"count": 3, "ok": true, "ratio": 0.5, "note": nil, "other": []int{1}}, LevelError)
	})
}

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.JobsEnqueued.WithLabelValues("emails", "send").Inc()
	m.WorkerActive.WithLabelValues("worker-1").Set(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
