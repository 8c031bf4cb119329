package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// leveledCore replaces the level filter of the core it wraps.
// The wrapped core's own level is bypassed, so a component may log
// more verbosely than the global logger.
type leveledCore struct {
	zapcore.Core

	level zapcore.Level
}

// Enabled reports whether entries at l pass this core's level.
func (c *leveledCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check adds the core to ce when the entry level passes.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the level when fields are attached.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{
		Core:  c.Core.With(fields),
		level: c.level,
	}
}

// WithLevel returns a zap option that filters the logger at lvl.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &leveledCore{Core: core, level: lvl}
	})
}
