package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "来源处理失败",
		Data:    logrus.Fields{"url": "https://example.com/", "attempt": 2},
	}
	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2024-05-01 12:30:00] [WARN] [] 来源处理失败 attempt=2 url=https://example.com/\n", string(out))
}

func TestInitLogger(t *testing.T) {
	old := Log
	t.Cleanup(func() { Log = old })

	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, InitLogger("debug", file, &console))

	Log.Debug("hello")
	assert.Contains(t, console.String(), "[DEBU]")
	assert.Contains(t, console.String(), "logger_test.go:")
	assert.Contains(t, console.String(), "hello")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, console.String(), string(data))
}

func TestInitLogger_BadLevelFallsBackToInfo(t *testing.T) {
	old := Log
	t.Cleanup(func() { Log = old })

	var console bytes.Buffer
	require.NoError(t, InitLogger("verbose", "", &console))
	Log.Debug("hidden")
	Log.Info("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}

func TestWithRun(t *testing.T) {
	old := Log
	t.Cleanup(func() { Log = old })

	var console bytes.Buffer
	require.NoError(t, InitLogger("info", "", &console))
	WithRun("abc").Infof("source %d done", 2)
	assert.Contains(t, console.String(), "source 2 done run=abc\n")
}

func TestCustomFormatter_TimeLayout(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Level:   logrus.ErrorLevel,
		Message: "x",
	}
	out, err := (&CustomFormatter{TimeLayout: time.RFC3339}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2024-05-01T12:30:00Z] [ERRO] [] x\n", string(out))
}
