package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", &buf)
	logger.Info("hello", "key", "value")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "value", record["key"])
	assert.Equal(t, "INFO", record["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("warn", &buf)
	logger.Info("suppressed")
	assert.Zero(t, buf.Len())
	logger.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("verbose", &buf)
	logger.Debug("suppressed")
	assert.Zero(t, buf.Len())
	logger.Info("visible")
	assert.NotZero(t, buf.Len())
}

func TestWithAttachesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", &buf).With("component", "safety")
	logger.Info("event")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "safety", record["component"])
}
