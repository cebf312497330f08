package utilities

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap/zapcore"
)

func TestIDGeneratorUnique(t *testing.T) {
	g := NewIDGenerator(7)
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := g.NewID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestIDGeneratorFallsBackToKSUID(t *testing.T) {
	g := NewIDGenerator(5000)
	id := g.NewID()
	assert.Equal(t, 27, len(id))
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning", false))
	assert.Equal(t, zapcore.DebugLevel, levelFromString("", true))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("", false))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("bogus", true))
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, zapcore.InfoLevel)
	lg.Sugar().Infow("stored subscriber", "name", "alerts")
	lg.Debug("dropped")
	assert.NoError(t, lg.Sync())

	var line map[string]any
	assert.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "stored subscriber", line["msg"])
	assert.Equal(t, "alerts", line["name"])
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriber.log")
	lg, err := Init(Config{Level: "info", File: path})
	assert.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
