// Package config loads planspectre settings from .planspectre.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Pricing sources accepted by pricing_source.
const (
	PricingStatic = "static"
	PricingAWS    = "aws"
	PricingMCP    = "mcp"
)

// Config holds planspectre configuration loaded from .planspectre.yaml.
type Config struct {
	Profile             string             `yaml:"profile"`
	Region              string             `yaml:"region"`
	Format              string             `yaml:"format"`
	PricingSource       string             `yaml:"pricing_source"`
	HoursPerMonth       int                `yaml:"hours_per_month"`
	DefaultHourlyRate   float64            `yaml:"default_hourly_rate"`
	LookupTimeout       string             `yaml:"lookup_timeout"`
	CacheTTL            string             `yaml:"cache_ttl"`
	Concurrency         int                `yaml:"concurrency"`
	SummaryNames        int                `yaml:"summary_names"`
	IncludeChildModules bool               `yaml:"include_child_modules"`
	UsageEstimates      map[string]float64 `yaml:"usage_estimates"`
	Terraform           Terraform          `yaml:"terraform"`
	MCP                 MCP                `yaml:"mcp"`
}

// Terraform configures conversion of binary plan files.
type Terraform struct {
	Bin string `yaml:"bin"`
	Dir string `yaml:"dir"`
}

// MCP configures the pricing MCP server launched over stdio.
type MCP struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	EnvFile string            `yaml:"env_file"`
	Tool    string            `yaml:"tool"`
}

// LookupTimeoutDuration parses lookup_timeout. Invalid or empty values yield 0.
func (c Config) LookupTimeoutDuration() time.Duration {
	return parseDuration(c.LookupTimeout)
}

// CacheTTLDuration parses cache_ttl. Invalid or empty values yield 0.
func (c Config) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL)
}

// UsageEstimateDecimals converts usage_estimates to exact decimals.
func (c Config) UsageEstimateDecimals() map[string]decimal.Decimal {
	if len(c.UsageEstimates) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(c.UsageEstimates))
	for k, v := range c.UsageEstimates {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}

// Validate rejects settings that cannot be honored.
func (c Config) Validate() error {
	switch c.PricingSource {
	case "", PricingStatic, PricingAWS, PricingMCP:
	default:
		return fmt.Errorf("unsupported pricing_source %q (use static, aws, or mcp)", c.PricingSource)
	}
	if c.PricingSource == PricingMCP && c.MCP.Command == "" {
		return fmt.Errorf("pricing_source mcp requires mcp.command")
	}
	if c.HoursPerMonth < 0 || c.Concurrency < 0 || c.SummaryNames < 0 {
		return fmt.Errorf("hours_per_month, concurrency and summary_names must not be negative")
	}
	if c.DefaultHourlyRate < 0 {
		return fmt.Errorf("default_hourly_rate must not be negative")
	}
	for _, d := range []struct{ key, value string }{
		{"lookup_timeout", c.LookupTimeout},
		{"cache_ttl", c.CacheTTL},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, d.value, err)
		}
	}
	return nil
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}

// Load searches for .planspectre.yaml or .planspectre.yml in the given directory
// and returns the parsed config. Returns an empty Config if no file is found.
func Load(dir string) (Config, error) {
	candidates := []string{
		filepath.Join(dir, ".planspectre.yaml"),
		filepath.Join(dir, ".planspectre.yml"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		return cfg, nil
	}

	return Config{}, nil
}
