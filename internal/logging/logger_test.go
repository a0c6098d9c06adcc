package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/api/internal/config"
)

func TestNew_JSONWithDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Log:    config.LogConfig{Level: "debug", Format: "json"},
	}

	logger := NewWithOutput(cfg, &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	WithUserID(logger, "u-1").Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "vidshare-api", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Contains(t, entry, "ts")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Log: config.LogConfig{Level: "chatty", Format: "text"}}

	logger := NewWithOutput(cfg, &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
