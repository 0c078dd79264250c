// Copyright 2025 James Ross
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelTelemetry emits each igniter.jobs.* event as a zero-duration span
// event, mirroring internal/obs/tracing.go's AddEvent/KeyValue helpers.
// It relies on whatever TracerProvider the host process has configured
// globally; when none is set, the OTel SDK's no-op tracer makes every
// call a cheap no-op.
type OTelTelemetry struct {
	svc    string
	env    string
	tracer trace.Tracer
}

// NewOTelTelemetry builds a telemetry adapter for service/environment.
func NewOTelTelemetry(service, environment string) *OTelTelemetry {
	return &OTelTelemetry{
		svc:    service,
		env:    environment,
		tracer: otel.Tracer("igniter.jobs"),
	}
}

func (o *OTelTelemetry) Service() string     { return o.svc }
func (o *OTelTelemetry) Environment() string { return o.env }

func (o *OTelTelemetry) Emit(name string, attrs Attrs, level Level) {
	_, span := o.tracer.Start(context.Background(), "igniter.jobs."+name)
	defer span.End()

	kvs := make([]attribute.KeyValue, 0, len(attrs)+1)
	kvs = append(kvs, attribute.String("level", string(level)))
	for k, v := range attrs {
		kvs = append(kvs, keyValue(k, v))
	}
	span.AddEvent(name, trace.WithAttributes(kvs...))
}

func keyValue(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case nil:
		return attribute.String(key, "")
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
