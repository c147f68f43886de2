package config

import "time"

// Config holds runtime settings for the townsquare CLI.
//
// Fields:
//   - ServerURL: base URL of the auth server's JSON API.
//   - StatePath: SQLite file that keeps the current session between runs.
//   - RefreshInterval: how often the keep-alive loop refreshes the session.
//   - ActivityRefreshThrottle: minimum gap between activity-triggered refreshes.
//   - RequestTimeout: bound on each API call.
type Config struct {
	ServerURL               string
	StatePath               string
	RefreshInterval         time.Duration
	ActivityRefreshThrottle time.Duration
	RequestTimeout          time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.StatePath = ""
	c.RefreshInterval = time.Hour
	c.ActivityRefreshThrottle = 5 * time.Minute
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
