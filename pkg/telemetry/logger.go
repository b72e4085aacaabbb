// Package telemetry carries the ambient logging and instrumentation this
// module's engine packages thread through rather than reach for globals
// directly — the same shape the teacher threads a Logger interface into
// its storage engine constructors.
package telemetry

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Logger is the narrow logging capability every engine package accepts.
// NewLogrLogger adapts a logr.Logger to it; NewStdLogger wraps the standard
// library's log.Logger the way the teacher's CLI wires up a default.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type logrLogger struct {
	l logr.Logger
}

// NewStdLogger returns a Logger backed by stdr (a logr.LogSink implemented
// on top of the standard library's log package), the default when no
// structured logging backend has been configured.
func NewStdLogger() Logger {
	return &logrLogger{l: stdr.New(nil)}
}

// NewLogrLogger adapts an existing logr.Logger, for callers that already
// have one wired (e.g. an otel-aware logging pipeline).
func NewLogrLogger(l logr.Logger) Logger {
	return &logrLogger{l: l}
}

func (g *logrLogger) Debugf(format string, args ...any) {
	g.l.V(1).Info(sprintf(format, args...))
}

func (g *logrLogger) Infof(format string, args ...any) {
	g.l.Info(sprintf(format, args...))
}

func (g *logrLogger) Warnf(format string, args ...any) {
	g.l.V(0).Info("WARN: " + sprintf(format, args...))
}

func (g *logrLogger) Errorf(format string, args ...any) {
	g.l.Error(nil, sprintf(format, args...))
}

// NopLogger discards everything; used in tests.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
