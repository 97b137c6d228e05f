package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"production default level", Config{}, false},
		{"debug development", Config{Level: "debug", Development: true}, false},
		{"warn production", Config{Level: "warn"}, false},
		{"unknown level", Config{Level: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("hello")
		})
	}
}

func TestMustNewFallsBackToNop(t *testing.T) {
	logger := MustNew(Config{Level: "loud"})
	require.NotNil(t, logger)
	logger.Info("discarded")
	logger.Sync()
}

func TestNamedKeepsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	child := logger.Named("ws").With(zap.String("conn", "conn_1"))
	child.Info("opened")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ws", entries[0].LoggerName)
	assert.Equal(t, "conn_1", entries[0].ContextMap()["conn"])
}
