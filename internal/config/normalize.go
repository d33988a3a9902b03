package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeJobs()
	c.normalizeTTS()
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	derived := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.log_dir", &c.Paths.LogDir, filepath.Join(c.Paths.DataDir, "logs")},
		{"paths.mirror_file", &c.Paths.MirrorFile, filepath.Join(c.Paths.DataDir, defaultMirrorFileName)},
		{"paths.audio_dir", &c.Paths.AudioDir, filepath.Join(c.Paths.DataDir, "audio")},
		{"paths.video_dir", &c.Paths.VideoDir, filepath.Join(c.Paths.DataDir, "media", "videos")},
	}
	for _, d := range derived {
		if strings.TrimSpace(*d.value) == "" {
			*d.value = d.fallback
		}
		if *d.value, err = expandPath(*d.value); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeStore() error {
	if value, ok := os.LookupEnv(EnvDatabaseURL); ok && strings.TrimSpace(value) != "" {
		c.Store.URL = value
	}
	c.Store.URL = strings.TrimSpace(c.Store.URL)
	if c.Store.URL == "" {
		c.Store.URL = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.StoreDriver() == DriverSQLite && !strings.HasPrefix(c.Store.URL, "file:") {
		expanded, err := expandPath(c.Store.URL)
		if err != nil {
			return fmt.Errorf("store.url: %w", err)
		}
		c.Store.URL = expanded
	}
	c.Store.KeyPrefix = strings.Trim(strings.TrimSpace(c.Store.KeyPrefix), ":")
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = defaultKeyPrefix
	}
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("ANIMLAB_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.API.Bind = value
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("ANIMLAB_API_TOKEN"); ok {
			c.API.Token = value
		}
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.PageSize == 0 {
		c.API.PageSize = defaultPageSize
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeJobs() {
	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = defaultJobWorkers
	}
	if c.Jobs.QueueSize == 0 {
		c.Jobs.QueueSize = defaultJobQueueSize
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Command = strings.TrimSpace(c.TTS.Command)
	if c.TTS.Command == "" {
		c.TTS.Command = defaultTTSCommand
	}
	if c.TTS.Rate == 0 {
		c.TTS.Rate = defaultTTSRate
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
}

func (c *Config) normalizeRender() {
	c.Render.Command = strings.TrimSpace(c.Render.Command)
	args := make([]string, 0, len(c.Render.Args))
	for _, arg := range c.Render.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Render.Args = args
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
}
