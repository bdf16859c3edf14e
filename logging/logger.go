package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging interface every motioncore component
// takes at construction time. Keyed arguments follow zap's sugared
// convention: alternating key, value pairs.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Level() Level
	Named(name string) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
	level Level
	name  string
}

func levelToZap(l Level) zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a production logger at the given level.
func New(level Level) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(levelToZap(level))
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: z.Sugar(), level: level}, nil
}

// NewTestLogger returns a logger that writes to the test's own output,
// mirroring the teacher's golog.NewTestLogger(t) convention.
func NewTestLogger(t testing.TB) Logger {
	core := zaptest{t: t}
	z := zap.New(core)
	return &zapLogger{sugar: z.Sugar(), level: DEBUG}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *zapLogger) Level() Level                         { return l.level }

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{sugar: l.sugar.Named(name), level: l.level, name: name}
}
