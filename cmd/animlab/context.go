package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"animlab/internal/catalog"
	"animlab/internal/config"
	"animlab/internal/logging"
	"animlab/internal/media"
	"animlab/internal/mirror"
	"animlab/internal/store"
)

type commandContext struct {
	configFlag *string
	envFlag    *string
	jsonFlag   *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, envFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) loadEnv() error {
	if c.envFlag == nil {
		return nil
	}
	return config.LoadEnvFile(*c.envFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// session bundles the collaborators a one-shot command needs.
type session struct {
	cfg     *config.Config
	store   store.Store
	catalog *catalog.Service
	library *media.Library
	mirror  *mirror.Mirror
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession opens the store and composes the catalog the same way the
// service does. Callers must Close the session.
func (c *commandContext) openSession(ctx context.Context) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger := cliLogger(cfg)
	mir := mirror.New(cfg.Paths.MirrorFile, st, logger)
	library := media.NewLibrary(cfg.Paths.VideoDir, cfg.Paths.AudioDir)
	svc := catalog.New(st, mir, logger,
		catalog.WithPageSize(cfg.API.PageSize),
		catalog.WithAudioCounter(library),
	)
	return &session{cfg: cfg, store: st, catalog: svc, library: library, mirror: mir}, nil
}

// cliLogger keeps one-shot commands quiet unless something goes wrong.
func cliLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.New(logging.Options{Level: "warn", Format: cfg.Logging.Format, Console: os.Stderr})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// wantJSON reports whether output should be JSON: either requested with
// --json or stdout is not a terminal.
func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	if c.jsonFlag != nil && *c.jsonFlag {
		return true
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
