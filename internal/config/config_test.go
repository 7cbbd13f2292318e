package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Output != DefaultOutput {
		t.Errorf("expected output %s, got %s", DefaultOutput, cfg.Output)
	}
	if cfg.Rate != DefaultRate {
		t.Errorf("expected rate %d, got %d", DefaultRate, cfg.Rate)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("expected workers %d, got %d", DefaultWorkers, cfg.Workers)
	}
	if cfg.Retry.Multiplier != DefaultMultiplier {
		t.Errorf("expected multiplier %v, got %v", DefaultMultiplier, cfg.Retry.Multiplier)
	}
}

func TestLoad_WithoutConfigFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--input", "in.jsonl", "--rate", "500"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Input != "in.jsonl" {
		t.Errorf("expected input in.jsonl, got %s", cfg.Input)
	}
	if cfg.Rate != 500 {
		t.Errorf("expected rate 500, got %d", cfg.Rate)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("BLAZE_RATE", "42")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--input", "in.jsonl"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Rate != 42 {
		t.Errorf("expected env override rate 42, got %d", cfg.Rate)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("BLAZE_RATE", "42")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--input", "in.jsonl", "--rate", "900"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Rate != 900 {
		t.Errorf("expected flag to win over env, got %d", cfg.Rate)
	}
}

func TestLoad_EndpointShortcutFromEnv(t *testing.T) {
	t.Setenv("BLAZE_ENDPOINT_URL", "http://localhost:11434/api/generate")
	t.Setenv("BLAZE_API_KEY", "secret")
	t.Setenv("BLAZE_MODEL", "llama3")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--input", "in.jsonl", "--workers", "7"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Endpoints) != 1 {
		t.Fatalf("expected 1 synthesized endpoint, got %d", len(cfg.Endpoints))
	}
	ep := cfg.Endpoints[0]
	if ep.URL != "http://localhost:11434/api/generate" || ep.APIKey != "secret" || ep.Model != "llama3" {
		t.Errorf("unexpected synthesized endpoint: %+v", ep)
	}
	if ep.MaxConcurrent != 7 {
		t.Errorf("expected max_concurrent to mirror workers (7), got %d", ep.MaxConcurrent)
	}
}

func TestLoad_EndpointsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.yaml")
	contents := `
endpoints:
  - url: http://localhost:11434
    weight: 3
    max_concurrent: 10
  - url: http://localhost:11435
    weight: 1
    max_concurrent: 5
request:
  timeout: 45s
retry:
  max_attempts: 5
  initial_backoff: 100ms
  max_backoff: 10s
  multiplier: 2.5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write endpoints file: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--input", "in.jsonl", "--config", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(cfg.Endpoints))
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s from file, got %s", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.Multiplier != 2.5 {
		t.Errorf("unexpected retry policy: %+v", cfg.Retry)
	}
}

func TestValidate_RejectsMissingInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoints = []EndpointConfig{{URL: "http://x", Weight: 1, MaxConcurrent: 1}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestValidate_RejectsEmptyEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "in.jsonl"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty endpoints")
	}
}

func TestValidate_RejectsLowWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "in.jsonl"
	cfg.Endpoints = []EndpointConfig{{URL: "http://x", Weight: 0, MaxConcurrent: 1}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for weight < 1")
	}
}

func TestValidate_RejectsBadRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "in.jsonl"
	cfg.Endpoints = []EndpointConfig{{URL: "http://x", Weight: 1, MaxConcurrent: 1}}
	cfg.Retry.Multiplier = 1.0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for multiplier <= 1.0")
	}
}

func TestBuildEndpointSpecs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 8
	cfg.Endpoints = []EndpointConfig{
		{URL: "http://localhost:11434", Weight: 2},
	}

	specs, err := BuildEndpointSpecs(cfg)
	if err != nil {
		t.Fatalf("BuildEndpointSpecs: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if specs[0].MaxConcurrent != cfg.Workers {
		t.Errorf("expected max_concurrent to default to workers, got %d", specs[0].MaxConcurrent)
	}
}
