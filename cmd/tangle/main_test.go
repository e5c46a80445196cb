package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/tangle/internal/app"
	"go.trai.ch/tangle/internal/core/domain"
)

func TestRun(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	tests := []struct {
		name         string
		setupConfig  func(t *testing.T, tmpDir string)
		args         []string
		expectedExit int
	}{
		{
			name:         "Success with default config",
			setupConfig:  func(*testing.T, string) {},
			args:         []string{"tangle", "task", "list"},
			expectedExit: 0,
		},
		{
			name: "Success with config file",
			setupConfig: func(t *testing.T, tmpDir string) {
				content := "store:\n  driver: memory\nlog:\n  level: warn\n"
				err := os.WriteFile(filepath.Join(tmpDir, "tangle.yaml"), []byte(content), 0o600)
				if err != nil {
					t.Fatalf("failed to write config: %v", err)
				}
			},
			args:         []string{"tangle", "task", "add", "hello"},
			expectedExit: 0,
		},
		{
			name: "Invalid config",
			setupConfig: func(t *testing.T, tmpDir string) {
				content := "store:\n  driver: postgres\n"
				err := os.WriteFile(filepath.Join(tmpDir, "tangle.yaml"), []byte(content), 0o600)
				if err != nil {
					t.Fatalf("failed to write config: %v", err)
				}
			},
			args:         []string{"tangle", "task", "list"},
			expectedExit: 1,
		},
		{
			name:         "Unknown command",
			setupConfig:  func(*testing.T, string) {},
			args:         []string{"tangle", "frobnicate"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			tt.setupConfig(t, tmpDir)

			// Change to tmpDir for relative path resolution
			originalWd, _ := os.Getwd()
			err := os.Chdir(tmpDir)
			if err != nil {
				t.Fatalf("failed to chdir: %v", err)
			}
			defer func() {
				_ = os.Chdir(originalWd)
			}()

			os.Args = tt.args

			exitCode := run()
			assert.Equal(t, tt.expectedExit, exitCode)
		})
	}
}

func TestRun_CycleExitCode(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	fixedID := func(id domain.TaskID) func(*app.App) {
		return func(a *app.App) {
			a.WithIDGenerator(func() domain.TaskID { return id })
		}
	}

	// The snapshot store persists the graph between invocations.
	os.Args = []string{"tangle", "task", "show", "A"}
	assert.Equal(t, 1, run())
	_, err := os.Stat(filepath.Join(tmpDir, ".tangle"))
	assert.True(t, os.IsNotExist(err), "read-only commands must not create the store")

	os.Args = []string{"tangle", "task", "add", "first"}
	assert.Equal(t, 0, run(fixedID("A")))
	os.Args = []string{"tangle", "task", "add", "second"}
	assert.Equal(t, 0, run(fixedID("B")))

	os.Args = []string{"tangle", "dep", "add", "A", "B"}
	assert.Equal(t, 0, run())

	os.Args = []string{"tangle", "dep", "add", "B", "A"}
	assert.Equal(t, 2, run())

	os.Args = []string{"tangle", "dep", "add", "A", "A"}
	assert.Equal(t, 1, run())
}
