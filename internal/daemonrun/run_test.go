package daemonrun

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"animlab/internal/daemon"
	"animlab/internal/logging"
	"animlab/internal/testsupport"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animlabd.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile returned error: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID returned error: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunFailsOnMalformedSceneGraph(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.Paths.MirrorFile, 16)

	err := Run(context.Background(), cfg, Options{LogLevel: "error", Console: io.Discard})
	if err == nil {
		t.Fatal("expected Run to fail on an unreadable scene graph")
	}
	if _, statErr := os.Stat(PIDPath(cfg)); !os.IsNotExist(statErr) {
		t.Fatalf("expected pid file to be removed, got %v", statErr)
	}
	if _, statErr := os.Stat(cfg.LogPath()); statErr != nil {
		t.Fatalf("expected log file at %s: %v", cfg.LogPath(), statErr)
	}
}

func TestRunLeavesRunningDaemonPIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	running, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New returned error: %v", err)
	}
	if err := running.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() { _ = running.Stop() })

	pidPath := PIDPath(cfg)
	if err := os.WriteFile(pidPath, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	err = Run(context.Background(), cfg, Options{LogLevel: "error", Console: io.Discard})
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	pid, err := ReadPID(pidPath)
	if err != nil {
		t.Fatalf("ReadPID returned error: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("pid file rewritten by second instance: %d", pid)
	}
}
