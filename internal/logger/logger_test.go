package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "DEBUG", want: zapcore.DebugLevel},
		{in: "info", want: zapcore.InfoLevel},
		{in: "", want: zapcore.InfoLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: " warn ", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "verbose", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

//nolint:paralleltest // mutates the global logger
func TestSetRoutesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Infof("Supplier '%s': sync started", "acme")
	Warnw("slow fetch", "supplier", "acme")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Supplier 'acme': sync started", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "acme", entries[1].ContextMap()["supplier"])
}

//nolint:paralleltest // mutates the global logger
func TestInitialize(t *testing.T) {
	require.NoError(t, Initialize("debug", WithFields(map[string]any{"tenant": "t1"})))
	t.Cleanup(func() { Set(zap.NewNop()) })
	Debug("initialized")
}
