package cloudx

import (
	"sort"

	"github.com/gostratum/core/logx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LeveledLogger is the key/value logging interface some client libraries
// accept instead of a *zap.Logger (go-retryablehttp, for one).
type LeveledLogger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// NewLeveledLogger adapts l to LeveledLogger. A nil logger discards output.
func NewLeveledLogger(l *zap.Logger) LeveledLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLeveledLogger{s: l.Sugar()}
}

type zapLeveledLogger struct{ s *zap.SugaredLogger }

func (z *zapLeveledLogger) Debug(msg string, kv ...any) { z.s.Debugw(msg, kv...) }
func (z *zapLeveledLogger) Info(msg string, kv ...any)  { z.s.Infow(msg, kv...) }
func (z *zapLeveledLogger) Warn(msg string, kv ...any)  { z.s.Warnw(msg, kv...) }
func (z *zapLeveledLogger) Error(msg string, kv ...any) { z.s.Errorw(msg, kv...) }

// NewZapFromLogx returns a *zap.Logger whose entries are written through l.
// Level filtering is left to l; fields are flattened to logx.Any values.
func NewZapFromLogx(l logx.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return zap.New(&logxCore{logger: l})
}

type logxCore struct {
	logger logx.Logger
	fields []zapcore.Field
}

func (c *logxCore) Enabled(zapcore.Level) bool { return true }

func (c *logxCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	return &logxCore{logger: c.logger, fields: append(merged, fields...)}
}

func (c *logxCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(e, c)
}

func (c *logxCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]logx.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, logx.Any(k, enc.Fields[k]))
	}

	switch {
	case e.Level >= zapcore.ErrorLevel:
		c.logger.Error(e.Message, out...)
	case e.Level == zapcore.WarnLevel:
		c.logger.Warn(e.Message, out...)
	case e.Level == zapcore.InfoLevel:
		c.logger.Info(e.Message, out...)
	default:
		c.logger.Debug(e.Message, out...)
	}
	return nil
}

func (c *logxCore) Sync() error { return nil }
