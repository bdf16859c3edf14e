package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// zaptest is a minimal zapcore.Core that routes entries through t.Log, so
// that failures print inline with the failing test instead of to stderr.
type zaptest struct {
	t    testing.TB
	name string
}

func (c zaptest) Enabled(zapcore.Level) bool { return true }

func (c zaptest) With(fields []zapcore.Field) zapcore.Core {
	return c
}

func (c zaptest) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, c)
}

func (c zaptest) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.t.Logf("[%s] %s %s", entry.Level, entry.LoggerName, entry.Message)
	return nil
}

func (c zaptest) Sync() error { return nil }
