package actorutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, slogLevel(zap.DebugLevel))
	assert.Equal(t, slog.LevelInfo, slogLevel(zap.InfoLevel))
	assert.Equal(t, slog.LevelWarn, slogLevel(zap.WarnLevel))
	assert.Equal(t, slog.LevelError, slogLevel(zap.FatalLevel))
}
