package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDir points the logger at a temporary directory and resets global state
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir := logDir
	origInitErr := initErr

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = sync.Once{}
		sessionID = ""
		sessionIDOnce = sync.Once{}
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("viewport")
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "viewport", logger.component)
	assert.NotEmpty(t, logger.SessionID())
	assert.True(t, strings.HasSuffix(filepath.Base(logger.LogPath()), "-pageview.log"))

	_, statErr := os.Stat(logger.LogPath())
	assert.NoError(t, statErr)
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("surface")
	require.NoError(t, err)

	logger.Debugf("Debug %d", 1)
	logger.Infof("Info message")
	logger.Warnf("Warning message")
	logger.Errorf("Error message")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logger.LogPath())
	require.NoError(t, err)

	for _, pattern := range []string{
		"[surface] [DEBUG] Debug 1",
		"[surface] [INFO] Info message",
		"[surface] [WARN] Warning message",
		"[surface] [ERROR] Error message",
	} {
		assert.Contains(t, string(content), pattern)
	}
}

func TestWriterLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("compositor", &buf, LevelNormal)

	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("shown warning")
	logger.Errorf("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[compositor] [WARN] shown warning")
	assert.Contains(t, out, "[compositor] [ERROR] shown error")

	logger.SetLevel(LevelDebug)
	logger.Debugf("now visible")
	assert.Contains(t, buf.String(), "[compositor] [DEBUG] now visible")
}

func TestNamedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger("pageview", &buf, LevelDebug)
	child := root.Named("deferred")

	root.Infof("from root")
	child.Infof("from child")

	assert.Contains(t, buf.String(), "[pageview] [INFO] from root")
	assert.Contains(t, buf.String(), "[deferred] [INFO] from child")
	assert.Equal(t, root.SessionID(), child.SessionID())
	assert.NoError(t, child.Close())
}

func TestDiscard(t *testing.T) {
	logger := Discard("noop")
	logger.Errorf("dropped")
	assert.Empty(t, logger.LogPath())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"quiet", LevelQuiet, false},
		{"", LevelNormal, false},
		{"normal", LevelNormal, false},
		{"Verbose", LevelVerbose, false},
		{"debug", LevelDebug, false},
		{"loud", LevelNormal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetSessionIDStable(t *testing.T) {
	setupTestDir(t)

	id1 := GetSessionID()
	id2 := GetSessionID()
	assert.Equal(t, id1, id2)
	assert.Contains(t, id1, "-")
}

func TestLoggerCloseIdempotent(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}
