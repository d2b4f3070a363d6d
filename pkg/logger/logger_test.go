package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/last9/otelkit/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestJSONOutput(t *testing.T) {
	orig := config.Cfg
	defer func() { config.Cfg = orig }()

	config.Cfg.Environment = "production"
	config.Cfg.LoggerFormat = "text"
	assert.True(t, jsonOutput(), "production forces JSON")

	config.Cfg.Environment = "development"
	assert.False(t, jsonOutput())

	config.Cfg.LoggerFormat = "json"
	assert.True(t, jsonOutput())
}
