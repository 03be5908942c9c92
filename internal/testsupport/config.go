package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"highlighter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TempDir = filepath.Join(base, "temp")
	cfgVal.Paths.ClipDir = filepath.Join(base, "clips")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Detector.Executable = filepath.Join(base, "bin", "detector")
	cfgVal.FFmpeg.ExportWorkers = 2
	cfgVal.Catalog.BaseURL = "http://127.0.0.1:0/api/v1/"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithChannel registers a channel on the test config.
func WithChannel(name string, id uint32, displayName string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Channels[name] = config.Channel{ChannelID: id, DisplayName: displayName}
	}
}

// WithDeleteTemporaryFiles toggles temporary file cleanup.
func WithDeleteTemporaryFiles(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.DeleteTemporaryFiles = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
// The configured detector executable is always written so trimmer
// construction succeeds.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		if err := os.WriteFile(b.cfg.Detector.Executable, script, 0o755); err != nil {
			b.t.Fatalf("write detector stub: %v", err)
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TempDir)
}
