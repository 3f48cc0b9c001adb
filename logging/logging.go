// Package logging provides the structured logger used across the mirror
// controller: a thin wrapper over zap's SugaredLogger adding named
// subloggers (Logger interface, Sublogger, NewTestLogger/NewObservedTestLogger)
// without a full multi-appender/net-appender setup, which serves a
// multi-process robot server this module has no analogue of.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the logging interface used by every package in this module.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child logger whose name is namespaced under this
	// one, the way device.NewSession and move.New each take their own
	// ("device", "move") from the logger they are given.
	Sublogger(name string) Logger
	Sync() error
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (z *zapLogger) Sublogger(name string) Logger {
	return &zapLogger{z.SugaredLogger.Named(name)}
}

// NewLogger constructs a production Logger with the given root name.
func NewLogger(name string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	z, err := cfg.Build()
	if err != nil {
		// Config above is static and known-good; a build failure here would
		// be a broken invariant, not a runtime condition to recover from.
		panic(err)
	}
	return &zapLogger{z.Named(name).Sugar()}
}

// NewTestLogger returns a Logger that writes through tb.Log, for use in tests.
func NewTestLogger(tb testing.TB) Logger {
	return &zapLogger{zaptest.NewLogger(tb).Sugar()}
}

// ObservedTestLogger is a Logger whose emitted entries can be inspected by
// tests that assert on warning text.
type ObservedTestLogger struct {
	Logger
	obs *observer.ObservedLogs
}

// All returns every log entry observed so far.
func (o *ObservedTestLogger) All() []observer.LoggedEntry {
	return o.obs.All()
}

// NewObservedTestLogger returns a Logger paired with an observer that
// records every emitted entry, for asserting on warning/info text.
func NewObservedTestLogger(tb testing.TB) (Logger, *ObservedTestLogger) {
	core, obs := observer.New(zapcore.DebugLevel)
	base := zaptest.NewLogger(tb, zaptest.WrapOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return core
	})))
	l := &zapLogger{base.Sugar()}
	return l, &ObservedTestLogger{Logger: l, obs: obs}
}
