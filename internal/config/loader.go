package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/loomworks/loom/internal/types"
)

// envPrefix namespaces environment overrides, e.g. LOOM_SERVICE_BASE_URL.
const envPrefix = "LOOM"

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a new Loader instance.
func NewLoader(validator Validator) Loader {
	return &viperLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path. Environment
// variables named LOOM_<SECTION>_<KEY> override file values, and string
// values may reference variables with ${VAR_NAME} syntax.
// Returns an error if the file doesn't exist or cannot be parsed.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to parse config file", err)
		}
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	return l.unmarshal(v)
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, defaults plus environment overrides apply.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		v := newViper()
		return l.unmarshal(v)
	}
	return l.Load(path)
}

func (l *viperLoader) unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to decode configuration", err)
	}

	cfg.interpolate()

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper returns a Viper instance with defaults registered and
// environment overrides bound. Defaults must be registered for every
// key so AutomaticEnv can resolve overrides during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("core.home_dir", def.Core.HomeDir)
	v.SetDefault("core.timeout", def.Core.Timeout)
	v.SetDefault("core.debug", def.Core.Debug)
	v.SetDefault("service.base_url", def.Service.BaseURL)
	v.SetDefault("service.ws_base_url", def.Service.WSBaseURL)
	v.SetDefault("service.request_timeout", def.Service.RequestTimeout)
	v.SetDefault("layout.direction", def.Layout.Direction)
	v.SetDefault("layout.gap", def.Layout.Gap)
	v.SetDefault("layout.layer_gap", def.Layout.LayerGap)
	v.SetDefault("layout.node_width", def.Layout.NodeWidth)
	v.SetDefault("layout.node_height", def.Layout.NodeHeight)
	v.SetDefault("exec.log_capacity", def.Exec.LogCapacity)
	v.SetDefault("exec.command_timeout", def.Exec.CommandTimeout)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("tracing.enabled", def.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", def.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", def.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", def.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", def.Tracing.Insecure)
}

// interpolate expands ${VAR_NAME} references in every string setting.
func (c *Config) interpolate() {
	c.Core.HomeDir = interpolateString(c.Core.HomeDir)
	c.Service.BaseURL = interpolateString(c.Service.BaseURL)
	c.Service.WSBaseURL = interpolateString(c.Service.WSBaseURL)
	c.Layout.Direction = interpolateString(c.Layout.Direction)
	c.Logging.Level = interpolateString(c.Logging.Level)
	c.Logging.Format = interpolateString(c.Logging.Format)
	c.Tracing.Endpoint = interpolateString(c.Tracing.Endpoint)
	c.Tracing.ServiceName = interpolateString(c.Tracing.ServiceName)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as-is.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
