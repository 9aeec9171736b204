// Package logging wraps logrus behind a small interface so simulation code
// never imports it directly — only this package does. Tests
// inject a recording Logger instead of a real sink.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a structured set of key/value pairs attached to a log line,
// e.g. {"session_code": "AB12", "tick": 3600}.
type Fields map[string]interface{}

// Logger is the injected sink the core consumes: info/warn/error, each
// optionally carrying structured Fields. It is the generalization of the
// single `log.Printf` sink the core's predecessor used directly.
type Logger interface {
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// logrusLogger adapts *logrus.Logger to Logger.
type logrusLogger struct {
	entry *logrus.Logger
}

// NewLogrus builds a Logger backed by logrus, writing structured JSON to
// stderr. level controls the minimum emitted severity ("info", "warn",
// "error", "debug").
func NewLogrus(level string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(parsed)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: l}
}

func (l *logrusLogger) Info(msg string, fields Fields) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields Fields) {
	l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields Fields) {
	l.entry.WithFields(logrus.Fields(fields)).Error(msg)
}

// Nop is a Logger that discards everything, useful as a safe zero-value
// default collaborator.
type Nop struct{}

func (Nop) Info(string, Fields)  {}
func (Nop) Warn(string, Fields)  {}
func (Nop) Error(string, Fields) {}
