package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mlevchenko/signet/internal/flagx"
	"github.com/mlevchenko/signet/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify timeouts either as strings like "12s" or
// as integer nanoseconds. After parsing, values are copied into the runtime
// Config (which uses time.Duration).
type JSONConfig struct {
	ServiceURL     string         `json:"service_url"`
	SocketURL      string         `json:"socket_url"`
	DatabasePath   string         `json:"database_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJSON overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c/-config flags (via flagx.JSONConfigFlags);
// if no path is given, nothing is loaded. Empty JSON fields keep the value
// already present in cfg. Intended usage is: defaults -> parseJSON ->
// parseFlags, where later stages override earlier ones.
func parseJSON(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JSONConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServiceURL != "" {
		cfg.ServiceURL = jc.ServiceURL
	}
	if jc.SocketURL != "" {
		cfg.SocketURL = jc.SocketURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
}
