package logger

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	return buf
}

func TestLogger_WritesSubsystem(t *testing.T) {
	buf := captureOutput(t)

	Logger("test-subsystem").Info("entity created", "handle", 7)

	out := buf.String()
	assert.Contains(t, out, "entity created")
	assert.Contains(t, out, "handle=7")
	assert.Contains(t, out, "subsystem=test-subsystem")
}

func TestLogger_SameInstance(t *testing.T) {
	assert.Same(t, Logger("same"), Logger("same"))
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	log := Logger("existing")
	buf := captureOutput(t)

	log.Info("after switch", "key", "value")

	assert.Contains(t, buf.String(), "after switch")
	assert.Contains(t, buf.String(), "key=value")
}

func TestSetLevel_Dynamic(t *testing.T) {
	buf := captureOutput(t)
	log := Logger("dynamic")

	SetLevel("dynamic", slog.LevelError)
	log.Warn("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	SetLevel("dynamic", slog.LevelDebug)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevelConfig(t *testing.T) {
	cfg := parseConfig("discovery=debug, matching=warn,error", "json")

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("discovery"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("matching"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("registry"))
	assert.Equal(t, FormatJSON, cfg.Format)
}

func TestApply_AdjustsExistingLoggers(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)
	buf := captureOutput(t)

	log := Logger("applied")
	Apply("applied=error", "")
	log.Info("suppressed")
	require.NotContains(t, buf.String(), "suppressed")

	Apply("applied=debug", "")
	log.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestDiscard(t *testing.T) {
	buf := captureOutput(t)
	Discard().Error("nothing")
	assert.Empty(t, buf.String())
}
