package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tangle/internal/adapters/logger"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/zerr"
)

// captureStderr captures output written to os.Stderr during the execution of fn.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	originalStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() { os.Stderr = originalStderr }()

	done := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(r)
		done <- string(buf)
	}()

	fn()

	require.NoError(t, w.Close())
	output := <-done
	require.NoError(t, r.Close())
	return output
}

func TestLogger_DefaultsToStderr(t *testing.T) {
	output := captureStderr(t, func() {
		lg := logger.New()
		lg.Info("some message")
	})

	assert.Contains(t, output, "some message")
	assert.Contains(t, output, "INFO")
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New()
	lg.SetOutput(&buf)

	lg.Info("info message")
	lg.Warn("warn message")
	lg.Error(os.ErrPermission)

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "info message")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "permission denied")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New()
	lg.SetOutput(&buf)
	lg.SetLevel("warn")

	lg.Info("hidden")
	lg.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	lg.SetLevel("nonsense")
	lg.Info("still hidden")
	assert.NotContains(t, buf.String(), "still hidden")
}

func TestLogger_ErrorNil(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New()
	lg.SetOutput(&buf)

	lg.Error(nil)

	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New()
	lg.SetOutput(&buf)
	lg.SetJSON(true)

	lg.Error(zerr.Wrap(domain.ErrTaskNotFound, "lookup failed"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "operation failed", record["msg"])
	assert.Equal(t, "lookup failed: task not found", record["error"])
}

func TestLogger_SetOutputNilFallsBackToStderr(t *testing.T) {
	output := captureStderr(t, func() {
		lg := logger.New()
		lg.SetOutput(nil)
		lg.Warn("fallback")
	})

	assert.Contains(t, output, "fallback")
}

func TestFormatChain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "standard error",
			err:  errors.New("boom"),
			want: "boom",
		},
		{
			name: "single zerr",
			err:  domain.ErrTaskNotFound,
			want: "task not found",
		},
		{
			name: "wrapped chain",
			err:  zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "lookup failed"), "task_id", "a"),
			want: "lookup failed\n  caused by: task not found",
		},
		{
			name: "zerr wrapping standard error",
			err:  zerr.Wrap(errors.New("disk full"), "write failed"),
			want: "write failed\n  caused by: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.FormatChain(tt.err))
		})
	}
}
