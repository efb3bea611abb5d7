package config

import "time"

// Config holds runtime settings for the Signet CLI.
//
// Fields:
//   - ServiceURL: base URL of the remote identity/account service.
//   - SocketURL: websocket endpoint of the realtime message transport.
//   - DatabasePath: path of the local SQLite database file.
//   - RequestTimeout: per-call timeout for remote service requests.
type Config struct {
	ServiceURL     string
	SocketURL      string
	DatabasePath   string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServiceURL = "https://127.0.0.1:8443"
	c.SocketURL = "wss://127.0.0.1:8443/v1/websocket"
	c.DatabasePath = "signet.db"
	c.RequestTimeout = 12 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
