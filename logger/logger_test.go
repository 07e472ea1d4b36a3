package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("snap-edit", "info", &buf)

	log.WithUserID("u1").Info("credits debited")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "credits debited", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "snap-edit", line["service"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Contains(t, line, "timestamp")
}

func TestNewWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("snap-edit", "warn", &buf)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.NotZero(t, buf.Len())
}
