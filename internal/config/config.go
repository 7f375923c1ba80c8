package config

import "time"

// Config is the root configuration for the loom CLI.
type Config struct {
	Core    CoreConfig    `mapstructure:"core" yaml:"core" validate:"required"`
	Service ServiceConfig `mapstructure:"service" yaml:"service" validate:"required"`
	Layout  LayoutConfig  `mapstructure:"layout" yaml:"layout"`
	Exec    ExecConfig    `mapstructure:"exec" yaml:"exec"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir string        `mapstructure:"home_dir" yaml:"home_dir"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
	Debug   bool          `mapstructure:"debug" yaml:"debug"`
}

// ServiceConfig points the CLI at the workflow runtime service.
type ServiceConfig struct {
	// BaseURL is the HTTP endpoint commands are posted to.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// WSBaseURL is the websocket endpoint event streams attach to.
	WSBaseURL string `mapstructure:"ws_base_url" yaml:"ws_base_url" validate:"required,url"`

	// RequestTimeout bounds individual command requests.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"min=1s"`
}

// LayoutConfig carries the default geometry for workflow layout.
type LayoutConfig struct {
	Direction  string `mapstructure:"direction" yaml:"direction" validate:"omitempty,oneof=tb lr"`
	Gap        int    `mapstructure:"gap" yaml:"gap" validate:"min=1"`
	LayerGap   int    `mapstructure:"layer_gap" yaml:"layer_gap" validate:"min=1"`
	NodeWidth  int    `mapstructure:"node_width" yaml:"node_width" validate:"min=1"`
	NodeHeight int    `mapstructure:"node_height" yaml:"node_height" validate:"min=1"`
}

// ExecConfig tunes execution tracking.
type ExecConfig struct {
	// LogCapacity bounds the tracked log ring per execution.
	LogCapacity int `mapstructure:"log_capacity" yaml:"log_capacity" validate:"min=1,max=100000"`

	// CommandTimeout bounds pause/resume/cancel round trips.
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout" validate:"min=1s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"min=0,max=1"`

	// Insecure sends spans over a plaintext connection. The default is
	// system TLS against the collector endpoint.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`
}
