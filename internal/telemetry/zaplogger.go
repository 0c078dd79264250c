// Copyright 2025 James Ross
package telemetry

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.Logger to the Logger contract, the way
// internal/obs.NewLogger builds a production JSON-encoded zap logger
// with a configurable level.
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger builds a production-configured zap logger at the given
// level ("debug", "warn", "error"; anything else maps to "info").
func NewZapLogger(level string) (*ZapLogger, error) {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: log}, nil
}

// WrapZap adapts an already-constructed *zap.Logger.
func WrapZap(log *zap.Logger) *ZapLogger { return &ZapLogger{log: log} }

func (z *ZapLogger) Debug(msg string, attrs map[string]any) {
	defer recoverLog()
	z.log.Debug(msg, toFields(attrs)...)
}

func (z *ZapLogger) Success(msg string, attrs map[string]any) {
	defer recoverLog()
	z.log.Info(msg, toFields(attrs)...)
}

func (z *ZapLogger) Error(msg string, attrs map[string]any) {
	defer recoverLog()
	z.log.Error(msg, toFields(attrs)...)
}

// recoverLog guarantees a misbehaving logging call never propagates a
// panic into the caller — logging is always best-effort.
func recoverLog() {
	_ = recover()
}

func toFields(attrs map[string]any) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for k, v := range attrs {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}
