package config

import (
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/townsquare/internal/flagx"
	"github.com/dmitrijs2005/townsquare/internal/timex"
)

// FileConfig is the on-disk shape of the client configuration, JSON or YAML.
// Durations accept "1h" as well as integer nanoseconds.
type FileConfig struct {
	ServerURL               string          `json:"server_url" yaml:"server_url"`
	StatePath               string          `json:"state_path" yaml:"state_path"`
	RefreshInterval         *timex.Duration `json:"refresh_interval" yaml:"refresh_interval"`
	ActivityRefreshThrottle *timex.Duration `json:"activity_refresh_throttle" yaml:"activity_refresh_throttle"`
	RequestTimeout          *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// parseFile overlays cfg with the file named by -c / -config. It panics on
// read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	if flagx.IsYAML(path) {
		err = yaml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.StatePath != "" {
		cfg.StatePath = fc.StatePath
	}
	setDuration(&cfg.RefreshInterval, fc.RefreshInterval)
	setDuration(&cfg.ActivityRefreshThrottle, fc.ActivityRefreshThrottle)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
