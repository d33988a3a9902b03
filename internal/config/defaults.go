package config

const (
	defaultDataDir        = "~/.local/share/animlab"
	defaultAPIBind        = "127.0.0.1:8001"
	defaultPageSize       = 100
	defaultKeyPrefix      = "animlab"
	defaultJobWorkers     = 2
	defaultJobQueueSize   = 64
	defaultTTSCommand     = "espeak-ng"
	defaultTTSRate        = 165
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 50
	defaultLogMaxBackups  = 5
	defaultLogMaxAgeDays  = 30
	defaultMirrorFileName = "scene_graph.json"
	defaultDatabaseName   = "animlab.db"
)

// EnvDatabaseURL selects the scene store connection string.
const EnvDatabaseURL = "ANIMLAB_DATABASE_URL"

// Default returns a Config populated with repository defaults. Derived paths
// (log dir, mirror file, media dirs, database) are filled in by normalize
// relative to the data directory.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Store: Store{
			KeyPrefix: defaultKeyPrefix,
		},
		API: API{
			Bind:           defaultAPIBind,
			PageSize:       defaultPageSize,
			AllowedOrigins: []string{"*"},
		},
		Jobs: Jobs{
			Workers:   defaultJobWorkers,
			QueueSize: defaultJobQueueSize,
		},
		TTS: TTS{
			Command: defaultTTSCommand,
			Rate:    defaultTTSRate,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
