package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "" {
		t.Fatalf("expected empty region, got %q", cfg.Region)
	}
	if cfg.HoursPerMonth != 0 {
		t.Fatalf("expected zero hours_per_month, got %d", cfg.HoursPerMonth)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	content := `profile: production
region: eu-west-1
format: json
pricing_source: mcp
hours_per_month: 720
default_hourly_rate: 0.2
lookup_timeout: 5s
cache_ttl: 1h
concurrency: 8
summary_names: 5
include_child_modules: true
usage_estimates:
  aws_lambda_function: 4.5
terraform:
  bin: /usr/local/bin/terraform
mcp:
  command: uvx
  args:
    - awslabs.aws-pricing-mcp-server@latest
  env:
    FASTMCP_LOG_LEVEL: ERROR
  env_file: .env
  tool: get_pricing
`
	if err := os.WriteFile(filepath.Join(dir, ".planspectre.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Profile != "production" || cfg.Region != "eu-west-1" {
		t.Fatalf("unexpected profile/region: %q/%q", cfg.Profile, cfg.Region)
	}
	if cfg.PricingSource != PricingMCP {
		t.Fatalf("expected pricing_source mcp, got %q", cfg.PricingSource)
	}
	if cfg.HoursPerMonth != 720 || cfg.Concurrency != 8 || cfg.SummaryNames != 5 {
		t.Fatalf("unexpected numeric settings: %+v", cfg)
	}
	if !cfg.IncludeChildModules {
		t.Fatal("expected include_child_modules true")
	}
	if cfg.LookupTimeoutDuration() != 5*time.Second {
		t.Fatalf("expected 5s, got %v", cfg.LookupTimeoutDuration())
	}
	if cfg.CacheTTLDuration() != time.Hour {
		t.Fatalf("expected 1h, got %v", cfg.CacheTTLDuration())
	}
	if cfg.Terraform.Bin != "/usr/local/bin/terraform" {
		t.Fatalf("unexpected terraform bin %q", cfg.Terraform.Bin)
	}
	if cfg.MCP.Command != "uvx" || len(cfg.MCP.Args) != 1 || cfg.MCP.EnvFile != ".env" {
		t.Fatalf("unexpected mcp settings: %+v", cfg.MCP)
	}
	if cfg.MCP.Env["FASTMCP_LOG_LEVEL"] != "ERROR" {
		t.Fatalf("unexpected mcp env: %v", cfg.MCP.Env)
	}

	usage := cfg.UsageEstimateDecimals()
	if usage["aws_lambda_function"].String() != "4.5" {
		t.Fatalf("expected lambda usage 4.5, got %s", usage["aws_lambda_function"])
	}
}

func TestLoad_YMLExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".planspectre.yml"), []byte("region: us-west-2\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "us-west-2" {
		t.Fatalf("expected us-west-2, got %q", cfg.Region)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".planspectre.yaml"), []byte("region: [unclosed"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".planspectre.yaml"), []byte("pricing_source: guess\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "pricing_source") {
		t.Fatalf("expected pricing_source error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"static", Config{PricingSource: PricingStatic}, false},
		{"aws", Config{PricingSource: PricingAWS}, false},
		{"mcp with command", Config{PricingSource: PricingMCP, MCP: MCP{Command: "uvx"}}, false},
		{"mcp without command", Config{PricingSource: PricingMCP}, true},
		{"unknown source", Config{PricingSource: "azure"}, true},
		{"negative hours", Config{HoursPerMonth: -1}, true},
		{"negative rate", Config{DefaultHourlyRate: -0.1}, true},
		{"bad timeout", Config{LookupTimeout: "soon"}, true},
		{"bad ttl", Config{CacheTTL: "forever"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurations_Invalid(t *testing.T) {
	cfg := Config{LookupTimeout: "invalid", CacheTTL: ""}
	if cfg.LookupTimeoutDuration() != 0 {
		t.Fatalf("expected 0 for invalid timeout, got %v", cfg.LookupTimeoutDuration())
	}
	if cfg.CacheTTLDuration() != 0 {
		t.Fatalf("expected 0 for empty ttl, got %v", cfg.CacheTTLDuration())
	}
}
