package config

import "time"

// Config holds runtime settings for the workledger CLI.
//
// Fields:
//   - ServerURL: default relay base URL; a per-device override lives in the
//     sync settings.
//   - DatabasePath: SQLite file holding the notebook and sync settings.
//   - PageSize: pull page size.
//   - RequestTimeout: per-request timeout of the relay client.
//   - SyncInterval: period of background sync; 0 disables it.
//   - LogFormat: "console" (zerolog) or "json" (slog).
//   - S3*: object storage for encrypted backups; backups are disabled while
//     S3Bucket is empty.
type Config struct {
	ServerURL      string
	DatabasePath   string
	PageSize       int
	RequestTimeout time.Duration
	SyncInterval   time.Duration
	LogFormat      string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3Prefix       string
}

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8787"
	c.DatabasePath = "workledger.db"
	c.PageSize = 100
	c.RequestTimeout = 30 * time.Second
	c.SyncInterval = time.Minute
	c.LogFormat = LogFormatConsole
	c.S3Region = "us-east-1"
	c.S3Prefix = "workledger"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
