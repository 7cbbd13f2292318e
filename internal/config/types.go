package config

import (
	"fmt"
	"time"
)

// Config holds every option recognised by Blaze: CLI flags bound on
// top of environment variables, a config file, and defaults, in that
// precedence order.
type Config struct {
	Input       string           `mapstructure:"input"`
	Output      string           `mapstructure:"output"`
	Errors      string           `mapstructure:"errors"`
	Rate        int              `mapstructure:"rate"`
	Workers     int              `mapstructure:"workers"`
	Timeout     time.Duration    `mapstructure:"timeout"`
	MaxAttempts int              `mapstructure:"max_attempts"`
	ConfigFile  string           `mapstructure:"config"`
	Verbose     bool             `mapstructure:"verbose"`
	JSONLogs    bool             `mapstructure:"json_logs"`
	NoProgress  bool             `mapstructure:"no_progress"`
	DryRun      bool             `mapstructure:"dry_run"`
	Strategy    string           `mapstructure:"strategy"`

	LogLevel        string        `mapstructure:"log_level"`
	LogDir          string        `mapstructure:"log_dir"`
	LogFileOutput   bool          `mapstructure:"log_file_output"`
	Theme           string        `mapstructure:"theme"`
	ProgressRefresh time.Duration `mapstructure:"progress_refresh"`

	Endpoints []EndpointConfig `mapstructure:"endpoints"`
	Request   RequestConfig    `mapstructure:"request"`
	Retry     RetryConfig      `mapstructure:"retry"`
}

// EndpointConfig is the on-disk/env shape of one domain.EndpointSpec.
type EndpointConfig struct {
	URL           string `mapstructure:"url" yaml:"url"`
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	Model         string `mapstructure:"model" yaml:"model"`
	BodyTemplate  string `mapstructure:"body_template" yaml:"body_template"`
	Weight        int    `mapstructure:"weight" yaml:"weight"`
	MaxConcurrent int    `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// RequestConfig mirrors the `request` block of the endpoints config
// file.
type RequestConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	Workers   int           `mapstructure:"workers" yaml:"workers"`
}

// UnmarshalYAML accepts either a duration string ("100ms", "30s", "2m")
// or a bare integer count of nanoseconds for Timeout.
func (r *RequestConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Timeout   yamlDuration `yaml:"timeout"`
		RateLimit int          `yaml:"rate_limit"`
		Workers   int          `yaml:"workers"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	r.Timeout = time.Duration(raw.Timeout)
	r.RateLimit = raw.RateLimit
	r.Workers = raw.Workers
	return nil
}

// RetryConfig mirrors the `retry` block of the endpoints config file.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// UnmarshalYAML accepts duration strings for InitialBackoff/MaxBackoff,
// matching RequestConfig's handling of the same "100ms"/"30s"/"2m" forms.
func (r *RetryConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		MaxAttempts    int          `yaml:"max_attempts"`
		InitialBackoff yamlDuration `yaml:"initial_backoff"`
		MaxBackoff     yamlDuration `yaml:"max_backoff"`
		Multiplier     float64      `yaml:"multiplier"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	r.MaxAttempts = raw.MaxAttempts
	r.InitialBackoff = time.Duration(raw.InitialBackoff)
	r.MaxBackoff = time.Duration(raw.MaxBackoff)
	r.Multiplier = raw.Multiplier
	return nil
}

// yamlDuration decodes either a Go duration string or a bare integer
// nanosecond count, since gopkg.in/yaml.v3 has no built-in notion of
// time.Duration the way viper's mapstructure hooks do.
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = yamlDuration(parsed)
	case int:
		*d = yamlDuration(time.Duration(val))
	case int64:
		*d = yamlDuration(time.Duration(val))
	default:
		return fmt.Errorf("unsupported duration value %v (%T)", val, val)
	}
	return nil
}

// endpointsFile is the top-level shape of the `--config` endpoints
// file: `{endpoints: [...], request: {...}, retry: {...}}`.
type endpointsFile struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
	Request   RequestConfig    `yaml:"request"`
	Retry     RetryConfig      `yaml:"retry"`
}
