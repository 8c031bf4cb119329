package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		" Info ": zapcore.InfoLevel,
		"warn":   zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"panic":  zapcore.PanicLevel,
		"fatal":  zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers verifies that loggers travel through the context with names and fields.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := NewWithWriter(zap.NewAtomicLevelAt(zapcore.DebugLevel), &buf)

	require.Same(t, Logger(), FromContext(context.Background()))

	ctx := ToContext(context.Background(), base)
	ctx = WithName(ctx, "stress")
	ctx = WithKV(ctx, "producer", 3)
	ctx = WithFields(ctx, "discipline", "blocking")

	InfoKV(ctx, "Message sent", "seq", 7)
	DebugKV(ctx, "Queue drained")

	out := buf.String()
	require.Contains(t, out, "stress")
	require.Contains(t, out, "Message sent")
	require.Contains(t, out, `"producer": 3`)
	require.Contains(t, out, `"discipline": "blocking"`)
	require.Contains(t, out, "Queue drained")
}

// TestWithLevel verifies that a component logger filters independently of its parent.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	parent := NewWithWriter(zap.NewAtomicLevelAt(zapcore.InfoLevel), &buf)
	child := parent.WithOptions(WithLevel(zapcore.ErrorLevel))

	child.Info("hidden")
	child.Error("shown")
	parent.Info("parent")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "parent")
}
