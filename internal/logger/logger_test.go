package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", "DEBUG", &buf)

	l.Info("poll failed", F("user_id", "u-1"), F("error", errors.New("timeout")))

	line := strings.TrimSpace(buf.String())
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, "poll failed", got["message"])
	assert.Equal(t, "u-1", got["user_id"])
	assert.Equal(t, "timeout", got["error"])
	assert.Equal(t, "INFO", got["level"])
	assert.Equal(t, "test", got["prefix"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", "WARN", &buf)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestChild_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", "INFO", &buf).With(F("component", "poller"))

	l.Info("tick", F("state", "LIVE"))

	assert.Contains(t, buf.String(), `"component":"poller"`)
	assert.Contains(t, buf.String(), `"state":"LIVE"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Lvl
	}{
		{"debug", log.DEBUG},
		{"INFO", log.INFO},
		{"warning", log.WARN},
		{"ERROR", log.ERROR},
		{"off", log.OFF},
		{"nonsense", log.INFO},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
