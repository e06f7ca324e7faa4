package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/polltask/api"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseLevel("loud")
	assert.False(t, ok)
	_, ok = ParseLevel("")
	assert.False(t, ok)
}

func TestDiagnosticsWritesJSON(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogJSON, "")
	var buf bytes.Buffer
	d := NewDiagnostics(New(Config{JSON: true, Out: &buf, Level: "debug", App: "test"}))

	d.Log(api.LevelError, "strange poll event")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "strange poll event", line["message"])
	assert.Equal(t, "test", line["app"])
}

func TestLevelFilter(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogJSON, "")
	var buf bytes.Buffer
	d := NewDiagnostics(New(Config{JSON: true, Out: &buf, Level: "error"}))
	d.Log(api.LevelInfo, "hidden")
	assert.Zero(t, buf.Len())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogJSON, "true")
	var buf bytes.Buffer
	d := NewDiagnostics(New(Config{Out: &buf, Level: "debug"}))
	d.Log(api.LevelWarn, "filtered by env")
	assert.Zero(t, buf.Len())
	d.Log(api.LevelError, "kept")
	assert.Contains(t, buf.String(), `"message":"kept"`)
}

func TestDiscard(t *testing.T) {
	Discard().Log(api.LevelError, "nothing")
}
