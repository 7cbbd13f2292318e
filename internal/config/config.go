// Package config implements Blaze's layered configuration resolution:
// CLI flags > environment variables (BLAZE_ prefix) > config file >
// defaults, highest first.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thushan/blaze/internal/domain"
)

const (
	EnvPrefix = "BLAZE"

	DefaultOutput      = "results.jsonl"
	DefaultErrors      = "errors.jsonl"
	DefaultRate        = 1000
	DefaultWorkers     = 50
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3

	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
	DefaultMultiplier     = 2.0
	DefaultJitterFraction = 1.0

	DefaultStrategy = "weighted"

	DefaultLogLevel        = "info"
	DefaultLogDir          = "./logs"
	DefaultTheme           = "default"
	DefaultProgressRefresh = 100 * time.Millisecond

	// DefaultFileWriteDelay lets an editor finish writing the file
	// before the reload callback reads it.
	DefaultFileWriteDelay = 150 * time.Millisecond
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns Blaze's defaults, applied before flags/env/file
// are layered on top.
func DefaultConfig() *Config {
	return &Config{
		Output:          DefaultOutput,
		Errors:          DefaultErrors,
		Rate:            DefaultRate,
		Workers:         DefaultWorkers,
		Timeout:         DefaultTimeout,
		MaxAttempts:     DefaultMaxAttempts,
		LogLevel:        DefaultLogLevel,
		LogDir:          DefaultLogDir,
		LogFileOutput:   true,
		Theme:           DefaultTheme,
		ProgressRefresh: DefaultProgressRefresh,
		Strategy:        DefaultStrategy,
		Retry: RetryConfig{
			MaxAttempts:    DefaultMaxAttempts,
			InitialBackoff: DefaultInitialBackoff,
			MaxBackoff:     DefaultMaxBackoff,
			Multiplier:     DefaultMultiplier,
		},
	}
}

// RegisterFlags binds Blaze's CLI surface onto fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("input", "", "path to input JSONL (required)")
	fs.String("output", DefaultOutput, "path for success output JSONL")
	fs.String("errors", DefaultErrors, "path for error output JSONL")
	fs.Int("rate", DefaultRate, "global requests/second")
	fs.Int("workers", DefaultWorkers, "worker concurrency")
	fs.Duration("timeout", DefaultTimeout, "per-attempt HTTP timeout")
	fs.Int("max_attempts", DefaultMaxAttempts, "maximum attempts per record")
	fs.String("config", "", "path to endpoints config file (JSON or YAML)")
	fs.Bool("verbose", false, "enable debug logging")
	fs.Bool("json_logs", false, "force JSON log output")
	fs.Bool("no_progress", false, "disable the live progress TUI")
	fs.Bool("dry_run", false, "validate config and print the resolved run plan, then exit")
	fs.String("strategy", DefaultStrategy, "endpoint selection strategy: weighted, round-robin")

	fs.String("log-level", DefaultLogLevel, "log level: debug, info, warn, error")
	fs.String("log-dir", DefaultLogDir, "directory for rotated log files")
	fs.Bool("log-file-output", true, "write logs to a rotating file in log-dir")
	fs.String("theme", DefaultTheme, "terminal theme: default, dark, light")
	fs.Duration("progress-refresh", DefaultProgressRefresh, "progress TUI refresh interval")
}

// Load resolves Config from the bound flags, BLAZE_ environment
// variables, an optional config file, and defaults, in that precedence
// order (highest first).
func Load(fs *pflag.FlagSet, onConfigChange func()) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("output", defaults.Output)
	v.SetDefault("errors", defaults.Errors)
	v.SetDefault("rate", defaults.Rate)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("max_attempts", defaults.MaxAttempts)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_dir", defaults.LogDir)
	v.SetDefault("log_file_output", defaults.LogFileOutput)
	v.SetDefault("theme", defaults.Theme)
	v.SetDefault("progress_refresh", defaults.ProgressRefresh)
	v.SetDefault("strategy", defaults.Strategy)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("unable to bind flags: %w", err)
		}
	}
	// Hyphenated flags bind under their own names; alias the underscore
	// keys that the defaults and bindInto use onto them.
	for _, key := range []string{"log-level", "log-dir", "log-file-output", "progress-refresh"} {
		v.RegisterAlias(strings.ReplaceAll(key, "-", "_"), key)
	}

	cfg := &Config{}
	if err := bindInto(v, cfg); err != nil {
		return nil, err
	}
	cfg.Retry = defaults.Retry

	if cfg.ConfigFile != "" {
		ef, err := loadEndpointsFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Endpoints = ef.Endpoints
		// File values apply only where neither a flag nor an env var
		// already claimed the option; viper's IsSet cannot tell a
		// bound flag's default apart from an explicit value, so the
		// flag set is consulted directly.
		if ef.Request.Timeout > 0 && !overridden(fs, "timeout") {
			cfg.Timeout = ef.Request.Timeout
		}
		if ef.Request.RateLimit > 0 && !overridden(fs, "rate") {
			cfg.Rate = ef.Request.RateLimit
		}
		if ef.Request.Workers > 0 && !overridden(fs, "workers") {
			cfg.Workers = ef.Request.Workers
		}
		if ef.Retry.MaxAttempts > 0 && !overridden(fs, "max_attempts") {
			cfg.Retry.MaxAttempts = ef.Retry.MaxAttempts
			cfg.MaxAttempts = ef.Retry.MaxAttempts
		}
		if ef.Retry.InitialBackoff > 0 {
			cfg.Retry.InitialBackoff = ef.Retry.InitialBackoff
		}
		if ef.Retry.MaxBackoff > 0 {
			cfg.Retry.MaxBackoff = ef.Retry.MaxBackoff
		}
		if ef.Retry.Multiplier > 0 {
			cfg.Retry.Multiplier = ef.Retry.Multiplier
		}

		watchEndpointsFile(cfg.ConfigFile, onConfigChange)
	} else if shortcutURL := os.Getenv(EnvPrefix + "_ENDPOINT_URL"); shortcutURL != "" {
		cfg.Endpoints = []EndpointConfig{{
			URL:           shortcutURL,
			APIKey:        os.Getenv(EnvPrefix + "_API_KEY"),
			Model:         os.Getenv(EnvPrefix + "_MODEL"),
			Weight:        1,
			MaxConcurrent: cfg.Workers,
		}}
	}

	if overridden(fs, "max_attempts") {
		cfg.Retry.MaxAttempts = cfg.MaxAttempts
	} else {
		cfg.MaxAttempts = cfg.Retry.MaxAttempts
	}

	return cfg, nil
}

// overridden reports whether the named option was supplied explicitly
// on the command line or through its BLAZE_ environment variable.
func overridden(fs *pflag.FlagSet, name string) bool {
	if fs != nil && fs.Changed(name) {
		return true
	}
	return os.Getenv(EnvPrefix+"_"+strings.ToUpper(name)) != ""
}

func bindInto(v *viper.Viper, cfg *Config) error {
	cfg.Input = v.GetString("input")
	cfg.Output = v.GetString("output")
	cfg.Errors = v.GetString("errors")
	cfg.Rate = v.GetInt("rate")
	cfg.Workers = v.GetInt("workers")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.MaxAttempts = v.GetInt("max_attempts")
	cfg.ConfigFile = v.GetString("config")
	cfg.Verbose = v.GetBool("verbose")
	cfg.JSONLogs = v.GetBool("json_logs")
	cfg.NoProgress = v.GetBool("no_progress")
	cfg.DryRun = v.GetBool("dry_run")
	cfg.Strategy = v.GetString("strategy")
	cfg.LogLevel = v.GetString("log_level")
	cfg.LogDir = v.GetString("log_dir")
	cfg.LogFileOutput = v.GetBool("log_file_output")
	cfg.Theme = v.GetString("theme")
	cfg.ProgressRefresh = v.GetDuration("progress_refresh")
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	return nil
}

// loadEndpointsFile decodes the `--config` endpoints file. JSON is
// valid YAML, so a single yaml.Unmarshal handles both forms.
func loadEndpointsFile(path string) (*endpointsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading endpoints config %s: %w", path, err)
	}
	var ef endpointsFile
	if err := yaml.Unmarshal(raw, &ef); err != nil {
		return nil, fmt.Errorf("parsing endpoints config %s: %w", path, err)
	}
	return &ef, nil
}

// watchEndpointsFile calls onConfigChange after writes to the endpoints
// file, at most once per 500ms. It starts no watcher when onConfigChange
// is nil, and it reloads nothing itself: it only invokes the callback.
func watchEndpointsFile(path string, onConfigChange func()) {
	if onConfigChange == nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			reloadMutex.Lock()
			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				reloadMutex.Unlock()
				continue
			}
			lastReload = now
			reloadMutex.Unlock()

			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		}
	}()
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Input == "" {
		return &domain.ConfigValidationError{Field: "input", Value: "", Reason: "is required"}
	}
	if cfg.Rate < 1 {
		return &domain.ConfigValidationError{Field: "rate", Value: cfg.Rate, Reason: "must be >= 1"}
	}
	if cfg.Workers < 1 {
		return &domain.ConfigValidationError{Field: "workers", Value: cfg.Workers, Reason: "must be >= 1"}
	}
	if len(cfg.Endpoints) == 0 {
		return &domain.ConfigValidationError{Field: "endpoints", Value: nil, Reason: "must not be empty"}
	}
	if cfg.Strategy != "" && cfg.Strategy != "weighted" && cfg.Strategy != "round-robin" {
		return &domain.ConfigValidationError{Field: "strategy", Value: cfg.Strategy, Reason: "must be weighted or round-robin"}
	}
	for i, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return &domain.ConfigValidationError{Field: fmt.Sprintf("endpoints[%d].url", i), Value: ep.URL, Reason: "must not be empty"}
		}
		if ep.Weight < 1 {
			return &domain.ConfigValidationError{Field: fmt.Sprintf("endpoints[%d].weight", i), Value: ep.Weight, Reason: "must be >= 1"}
		}
		if ep.MaxConcurrent < 1 {
			return &domain.ConfigValidationError{Field: fmt.Sprintf("endpoints[%d].max_concurrent", i), Value: ep.MaxConcurrent, Reason: "must be >= 1"}
		}
	}

	policy := domain.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Multiplier:     cfg.Retry.Multiplier,
	}
	return policy.Validate()
}
