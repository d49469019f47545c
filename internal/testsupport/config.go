package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"aaxsplit/internal/config"
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
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Paths.MetadataDir = filepath.Join(base, "metadata")
	cfgVal.Conversion.Parallel = 2

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

// WithActivationBytes sets the configured activation keys.
func WithActivationBytes(keys ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.ActivationBytes = config.NormalizeKeys(keys)
	}
}

// WithSnip overrides the intro/outro snip settings.
func WithSnip(enabled bool, intro, outro float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.Snip = enabled
		b.cfg.Conversion.SnipIntroSeconds = intro
		b.cfg.Conversion.SnipOutroSeconds = outro
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed
// with scripts that exit successfully.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		stubs := make(map[string]string, len(names))
		for _, name := range names {
			stubs[name] = "exit 0\n"
		}
		installStubs(b, stubs)
	}
}

// WithStubScript installs a single stub executable named name whose body is
// the given shell script, and points the matching tool setting at it.
func WithStubScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		installStubs(b, map[string]string{name: body})
		path := filepath.Join(b.baseDir, "bin", name)
		switch name {
		case "ffmpeg":
			b.cfg.Tools.FFmpeg = path
		case "ffprobe":
			b.cfg.Tools.FFprobe = path
		}
	}
}

func installStubs(b *configBuilder, stubs map[string]string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, body := range stubs {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			b.t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
