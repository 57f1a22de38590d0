package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ppiankov/planspectre/internal/analyzer"
	"github.com/ppiankov/planspectre/internal/aws"
	"github.com/ppiankov/planspectre/internal/config"
	"github.com/ppiankov/planspectre/internal/estimate"
	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/pricing"
	"github.com/ppiankov/planspectre/internal/report"
)

const (
	defaultFormat        = "text"
	defaultPricingSource = config.PricingStatic
	defaultConcurrency   = 4
	defaultLookupTimeout = 10 * time.Second
	defaultCacheTTL      = time.Hour
)

var analyzeFlags struct {
	region              string
	format              string
	outputFile          string
	pricingSource       string
	hoursPerMonth       int
	defaultHourlyRate   float64
	lookupTimeout       time.Duration
	cacheTTL            time.Duration
	concurrency         int
	summaryNames        int
	includeChildModules bool
	terraformBin        string
	timeout             time.Duration
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <plan>",
	Short: "Estimate cost and flag risky configuration in a Terraform plan",
	Long: `Analyze a Terraform plan (JSON from 'terraform show -json', or a binary plan
file converted with the terraform binary). Reports a resource summary, the
estimated monthly and annual cost per service and resource, and security
findings with a score.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.region, "region", "", "Pricing region (default: plan's aws provider, then us-east-1)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.format, "format", defaultFormat, "Output format: text, json, sarif, spectrehub")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.pricingSource, "pricing-source", defaultPricingSource, "Pricing source: static, aws, mcp")
	analyzeCmd.Flags().IntVar(&analyzeFlags.hoursPerMonth, "hours-per-month", pricing.HoursPerMonth, "Hours billed per month")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.defaultHourlyRate, "default-hourly-rate", estimate.DefaultHourlyRate.InexactFloat64(), "Hourly rate for SKUs missing from every price source (USD)")
	analyzeCmd.Flags().DurationVar(&analyzeFlags.lookupTimeout, "lookup-timeout", defaultLookupTimeout, "Timeout per pricing lookup")
	analyzeCmd.Flags().DurationVar(&analyzeFlags.cacheTTL, "cache-ttl", defaultCacheTTL, "How long looked-up prices are reused")
	analyzeCmd.Flags().IntVar(&analyzeFlags.concurrency, "concurrency", defaultConcurrency, "Parallel pricing lookups")
	analyzeCmd.Flags().IntVar(&analyzeFlags.summaryNames, "summary-names", 0, "Names shown per row of the resource table (default: 3)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.includeChildModules, "include-child-modules", false, "Analyze resources declared in child modules")
	analyzeCmd.Flags().StringVar(&analyzeFlags.terraformBin, "terraform-bin", "", "terraform binary used for binary plans (default: terraform)")
	analyzeCmd.Flags().DurationVar(&analyzeFlags.timeout, "timeout", 5*time.Minute, "Analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if analyzeFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, analyzeFlags.timeout)
		defer cancel()
	}

	// Apply config file defaults where flags were not explicitly set
	applyConfigDefaults()

	planPath := args[0]
	doc, err := plan.LoadFile(ctx, planPath, plan.TerraformShow{Bin: analyzeFlags.terraformBin, Dir: cfg.Terraform.Dir})
	if err != nil {
		return enhanceError("load plan", err)
	}

	region := analyzer.ResolveRegion(analyzeFlags.region, doc)
	slog.Info("Analyzing plan", "path", planPath, "region", region, "pricing_source", analyzeFlags.pricingSource)

	lookup, closeLookup, err := buildLookup(ctx, region)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLookup(); err != nil {
			slog.Warn("Failed to close pricing lookup", "error", err)
		}
	}()

	est := estimate.New(lookup, estimate.Options{
		HoursPerMonth:     analyzeFlags.hoursPerMonth,
		DefaultHourlyRate: decimal.NewFromFloat(analyzeFlags.defaultHourlyRate),
		Concurrency:       analyzeFlags.concurrency,
		LookupTimeout:     analyzeFlags.lookupTimeout,
		UsageEstimates:    cfg.UsageEstimateDecimals(),
	})
	engine := analyzer.NewEngine(est, nil, analyzer.EngineConfig{
		Region:              region,
		IncludeChildModules: analyzeFlags.includeChildModules,
		SummaryNames:        analyzeFlags.summaryNames,
	})

	result, err := engine.Run(ctx, doc)
	if err != nil {
		return enhanceError("analyze plan", err)
	}

	data := report.Data{
		Tool:      "planspectre",
		Version:   version,
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Target: report.Target{
			Type:    "terraform-plan",
			Path:    planPath,
			URIHash: computeTargetHash(planPath, region),
		},
		Config: report.ReportConfig{
			Region:              region,
			PricingSource:       analyzeFlags.pricingSource,
			HoursPerMonth:       analyzeFlags.hoursPerMonth,
			IncludeChildModules: analyzeFlags.includeChildModules,
		},
		Analysis: result,
	}

	var w io.Writer = cmd.OutOrStdout()
	if analyzeFlags.outputFile != "" {
		f, err := os.Create(analyzeFlags.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	reporter, err := selectReporter(analyzeFlags.format, w)
	if err != nil {
		return err
	}
	return reporter.Generate(data)
}

// buildLookup creates the configured pricing lookup. Live sources are
// wrapped in an in-memory cache. The returned close function is never nil.
func buildLookup(ctx context.Context, region string) (pricing.Lookup, func() error, error) {
	noop := func() error { return nil }

	var live pricing.Lookup
	closeFn := noop

	switch analyzeFlags.pricingSource {
	case config.PricingStatic, "":
		return pricing.NewStaticLookup(nil), noop, nil

	case config.PricingAWS:
		prof := profile
		if prof == "" {
			prof = cfg.Profile
		}
		client, err := aws.NewClient(ctx, prof, region)
		if err != nil {
			return nil, nil, enhanceError("initialize AWS client", err)
		}
		if _, err := client.CallerIdentity(ctx); err != nil {
			return nil, nil, enhanceError("verify AWS credentials", err)
		}
		live = pricing.NewAWSLookup(client.PricingClient(region))

	case config.PricingMCP:
		if cfg.MCP.Command == "" {
			return nil, nil, fmt.Errorf("pricing source mcp requires mcp.command in .planspectre.yaml")
		}
		env, err := mcpEnv(cfg.MCP)
		if err != nil {
			return nil, nil, err
		}
		l, err := pricing.DialMCP(ctx, pricing.MCPOptions{
			Command: cfg.MCP.Command,
			Args:    cfg.MCP.Args,
			Env:     env,
			Tool:    cfg.MCP.Tool,
			Version: version,
		})
		if err != nil {
			return nil, nil, enhanceError("start pricing MCP server", err)
		}
		live = l
		closeFn = l.Close

	default:
		return nil, nil, fmt.Errorf("unsupported pricing source: %s (use static, aws, or mcp)", analyzeFlags.pricingSource)
	}

	return pricing.NewCachedLookup(live, pricing.NewMemoryCache(), analyzeFlags.cacheTTL), closeFn, nil
}

func applyConfigDefaults() {
	if analyzeFlags.region == "" && cfg.Region != "" {
		analyzeFlags.region = cfg.Region
	}
	if analyzeFlags.format == defaultFormat && cfg.Format != "" {
		analyzeFlags.format = cfg.Format
	}
	if analyzeFlags.pricingSource == defaultPricingSource && cfg.PricingSource != "" {
		analyzeFlags.pricingSource = cfg.PricingSource
	}
	if analyzeFlags.hoursPerMonth == pricing.HoursPerMonth && cfg.HoursPerMonth > 0 {
		analyzeFlags.hoursPerMonth = cfg.HoursPerMonth
	}
	if analyzeFlags.defaultHourlyRate == estimate.DefaultHourlyRate.InexactFloat64() && cfg.DefaultHourlyRate > 0 {
		analyzeFlags.defaultHourlyRate = cfg.DefaultHourlyRate
	}
	if analyzeFlags.lookupTimeout == defaultLookupTimeout && cfg.LookupTimeoutDuration() > 0 {
		analyzeFlags.lookupTimeout = cfg.LookupTimeoutDuration()
	}
	if analyzeFlags.cacheTTL == defaultCacheTTL && cfg.CacheTTLDuration() > 0 {
		analyzeFlags.cacheTTL = cfg.CacheTTLDuration()
	}
	if analyzeFlags.concurrency == defaultConcurrency && cfg.Concurrency > 0 {
		analyzeFlags.concurrency = cfg.Concurrency
	}
	if analyzeFlags.summaryNames == 0 && cfg.SummaryNames > 0 {
		analyzeFlags.summaryNames = cfg.SummaryNames
	}
	if !analyzeFlags.includeChildModules && cfg.IncludeChildModules {
		analyzeFlags.includeChildModules = true
	}
	if analyzeFlags.terraformBin == "" && cfg.Terraform.Bin != "" {
		analyzeFlags.terraformBin = cfg.Terraform.Bin
	}
}

func selectReporter(format string, w io.Writer) (report.Reporter, error) {
	switch format {
	case "json":
		return &report.JSONReporter{Writer: w}, nil
	case "text":
		return &report.TextReporter{Writer: w}, nil
	case "sarif":
		return &report.SARIFReporter{Writer: w}, nil
	case "spectrehub":
		return &report.SpectreHubReporter{Writer: w}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (use text, json, sarif, or spectrehub)", format)
	}
}
