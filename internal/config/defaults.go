package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			HomeDir: getDefaultHomeDir(),
			Timeout: 5 * time.Minute,
			Debug:   false,
		},
		Service: ServiceConfig{
			BaseURL:        "http://localhost:7071/api",
			WSBaseURL:      "ws://localhost:7071/api",
			RequestTimeout: 10 * time.Second,
		},
		Layout: LayoutConfig{
			Direction:  "tb",
			Gap:        48,
			LayerGap:   96,
			NodeWidth:  180,
			NodeHeight: 72,
		},
		Exec: ExecConfig{
			LogCapacity:    500,
			CommandTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "",
			ServiceName: "loom",
			SampleRate:  1.0,
			Insecure:    false,
		},
	}
}

// DefaultPath returns the default config file location, ~/.loom/config.yaml.
func DefaultPath() string {
	return filepath.Join(getDefaultHomeDir(), "config.yaml")
}

// getDefaultHomeDir returns the default loom home directory.
// It uses ~/.loom or falls back to a temporary directory if user home cannot be determined.
func getDefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".loom")
	}
	return filepath.Join(userHome, ".loom")
}
