// Package report renders analysis results for humans and machines.
package report

import (
	"io"
	"time"

	"github.com/ppiankov/planspectre/internal/analyzer"
)

// Data is everything a reporter needs about one analysis run.
type Data struct {
	Tool      string                   `json:"tool"`
	Version   string                   `json:"version"`
	RunID     string                   `json:"run_id"`
	Timestamp time.Time                `json:"timestamp"`
	Target    Target                   `json:"target"`
	Config    ReportConfig             `json:"config"`
	Analysis  *analyzer.AnalysisReport `json:"analysis"`
}

// Target identifies the analyzed plan.
type Target struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	URIHash string `json:"uri_hash"`
}

// ReportConfig records the settings that shaped the estimates.
type ReportConfig struct {
	Region              string `json:"region"`
	PricingSource       string `json:"pricing_source"`
	HoursPerMonth       int    `json:"hours_per_month"`
	IncludeChildModules bool   `json:"include_child_modules"`
}

// Reporter writes a report for one run.
type Reporter interface {
	Generate(data Data) error
}

// JSONReporter writes the spectre/v1 envelope.
type JSONReporter struct {
	Writer io.Writer
}

// TextReporter writes a terminal-friendly report.
type TextReporter struct {
	Writer io.Writer
}

// SARIFReporter writes security findings as SARIF v2.1.0.
type SARIFReporter struct {
	Writer io.Writer
}

// SpectreHubReporter writes the compact spectrehub/v1 envelope.
type SpectreHubReporter struct {
	Writer io.Writer
}
