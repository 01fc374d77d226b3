package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLevel("verbose")
	require.False(t, ok)
}

// TestContextHelpers ensures loggers travel through contexts with names and fields.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "alarm-monitor")
	ctx = WithKV(ctx, "service_id", "svc-1")

	WarnKV(ctx, "Threshold clipped", "alarm", "CPU_UPPER_LIMIT_VCPUS")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "alarm-monitor", entries[0].LoggerName)
	require.Equal(t, "Threshold clipped", entries[0].Message)
	require.Equal(t, "svc-1", entries[0].ContextMap()["service_id"])
	require.Equal(t, "CPU_UPPER_LIMIT_VCPUS", entries[0].ContextMap()["alarm"])
}
