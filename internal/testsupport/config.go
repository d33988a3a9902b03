package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"animlab/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store is a SQLite file under the data directory and the API binds an
// ephemeral loopback port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	dataDir := filepath.Join(base, "data")
	cfgVal.Paths.DataDir = dataDir
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.MirrorFile = filepath.Join(dataDir, "scene_graph.json")
	cfgVal.Paths.AudioDir = filepath.Join(dataDir, "audio")
	cfgVal.Paths.VideoDir = filepath.Join(dataDir, "media", "videos")
	cfgVal.Store.URL = filepath.Join(dataDir, "animlab.db")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Jobs.Workers = 1
	cfgVal.Jobs.QueueSize = 8

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

// WithAPIToken sets the bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithStoreURL points the test config at a different store.
func WithStoreURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.URL = url
	}
}

// WithRenderCommand sets the external renderer command.
func WithRenderCommand(command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Command = command
		b.cfg.Render.Args = args
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the configured speech
// synthesizer is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.TTS.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "#!/bin/sh\nexit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
