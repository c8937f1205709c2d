// Package logger configures the process-wide zap logger. Logs always go to
// a file: the TUI owns stdout and stderr, so writing there would corrupt
// the screen.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath returns the fallback log file location.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "wigchat.log")
}

// New builds a JSON file logger at the given path. An empty path selects
// DefaultPath. Debug enables debug-level output.
func New(path string, debug bool) (*zap.Logger, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
