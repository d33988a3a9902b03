package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animlab/internal/config"
	"animlab/internal/testsupport"
)

// fakeEngine stands in for espeak-ng: it copies stdin into the -w target.
const fakeEngine = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -w) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
cat > "$out"
`

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	configPath string
	envPath    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv("ANIMLAB_API_BIND", "")
	t.Setenv("ANIMLAB_API_TOKEN", "")

	engine := testsupport.WriteScript(t, filepath.Join(base, "bin"), "espeak-ng", fakeEngine)
	dataDir := filepath.Join(base, "data")
	configPath := filepath.Join(homeDir, ".config", "animlab", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf("[paths]\ndata_dir = %q\n\n[api]\nbind = \"127.0.0.1:0\"\n\n[tts]\ncommand = %q\n", dataDir, engine)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		dataDir:    dataDir,
		configPath: configPath,
		envPath:    filepath.Join(base, "missing.env"),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--env-file", e.envPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("animlab %s returned error: %v (stderr %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
