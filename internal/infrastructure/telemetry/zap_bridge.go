package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapOTELCore returns a core that forwards entries at or above level to
// lp. It is a no-op core when lp is nil or disabled.
func NewZapOTELCore(name string, lp *LoggerProvider, level zapcore.Level) zapcore.Core {
	if lp == nil || !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(name, otelzap.WithLoggerProvider(lp.provider))
	// otelzap has no minimum level of its own
	return &levelFilterCore{Core: core, minLevel: level}
}

type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}

// NewBridgedLogger tees base, usually the existing stdout core, with the OTEL core
func NewBridgedLogger(base, otelCore zapcore.Core, opts ...zap.Option) *zap.Logger {
	return zap.New(zapcore.NewTee(base, otelCore), opts...)
}
