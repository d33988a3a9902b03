package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	MirrorFile string `toml:"mirror_file"`
	AudioDir   string `toml:"audio_dir"`
	VideoDir   string `toml:"video_dir"`
}

// Store selects the scene document store.
type Store struct {
	// URL is a SQLite path/file: URI or a valkey://, redis://, rediss:// URL.
	// ANIMLAB_DATABASE_URL overrides it.
	URL       string `toml:"url"`
	KeyPrefix string `toml:"key_prefix"`
}

// API contains HTTP server settings.
type API struct {
	Bind           string   `toml:"bind"`
	Token          string   `toml:"token"`
	PageSize       int      `toml:"page_size"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Jobs sizes the background worker pool.
type Jobs struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// TTS configures the external speech synthesizer.
type TTS struct {
	Command string `toml:"command"`
	Rate    int    `toml:"rate"`
	Voice   string `toml:"voice"`
}

// Render configures the external animation renderer. An empty command keeps
// render jobs in plan-only mode.
type Render struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for animlab.
//
// Configuration sections by subsystem:
//   - Paths: data, log, mirror, audio, and video locations
//   - Store: scene document store connection
//   - API: HTTP bind address, auth token, page size, CORS origins
//   - Jobs: background worker pool sizing
//   - TTS: speech synthesizer command and voice
//   - Render: animation renderer command
//   - Logging: log format, level, and rotation
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	API     API     `toml:"api"`
	Jobs    Jobs    `toml:"jobs"`
	TTS     TTS     `toml:"tts"`
	Render  Render  `toml:"render"`
	Logging Logging `toml:"logging"`
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverValkey = "valkey"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/animlab/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("animlab.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LogDir,
		c.Paths.AudioDir,
		c.Paths.VideoDir,
		filepath.Dir(c.Paths.MirrorFile),
	}
	if c.StoreDriver() == DriverSQLite {
		if dir := filepath.Dir(c.SQLitePath()); dir != "" && dir != "." {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StoreDriver reports which backend the store URL selects.
func (c *Config) StoreDriver() string {
	url := strings.ToLower(strings.TrimSpace(c.Store.URL))
	for _, scheme := range []string{"valkey://", "valkeys://", "redis://", "rediss://"} {
		if strings.HasPrefix(url, scheme) {
			return DriverValkey
		}
	}
	return DriverSQLite
}

// SQLitePath returns the database file path for the SQLite driver with any
// file: prefix and query string removed.
func (c *Config) SQLitePath() string {
	path := strings.TrimSpace(c.Store.URL)
	path = strings.TrimPrefix(path, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	return path
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "animlabd.lock")
}

// LogPath returns the rotating log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "animlab.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
