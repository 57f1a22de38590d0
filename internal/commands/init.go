package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate sample config and IAM policy",
	Long:  `Creates a sample .planspectre.yaml config file and an IAM policy JSON file granting read access to the AWS Price List API.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, _ []string) error {
	configPath := ".planspectre.yaml"
	policyPath := "planspectre-policy.json"
	out := cmd.OutOrStdout()

	wrote := 0
	for _, f := range []struct{ path, content string }{
		{configPath, sampleConfig},
		{policyPath, sampleIAMPolicy},
	} {
		written, err := writeIfNotExists(out, f.path, f.content, initFlags.force)
		if err != nil {
			return err
		}
		if written {
			wrote++
		}
	}

	if wrote > 0 {
		fmt.Fprintf(out, "Created %d file(s)\n", wrote)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "  1. Edit .planspectre.yaml to choose a region and pricing source")
		fmt.Fprintln(out, "  2. For pricing_source aws, apply planspectre-policy.json to your AWS IAM role/user")
		fmt.Fprintln(out, "  3. Run: terraform show -json plan.tfplan > plan.json && planspectre analyze plan.json")
	}
	return nil
}

func writeIfNotExists(out io.Writer, path, content string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "Skipping %s (already exists, use --force to overwrite)\n", path)
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

const sampleConfig = `# planspectre configuration
# See: https://github.com/ppiankov/planspectre

# Region used for pricing. Default: the plan's aws provider region, then us-east-1
# region: us-east-1

# AWS profile for pricing_source aws (or set AWS_PROFILE env var)
# profile: default

# Output format: text, json, sarif, spectrehub
format: text

# Where hourly prices come from: static (embedded table), aws (Price List API), mcp
pricing_source: static

# Billing hours per month and the rate for SKUs no source knows (USD/hour)
hours_per_month: 730
default_hourly_rate: 0.10

# Pricing lookups
lookup_timeout: 10s
cache_ttl: 1h
concurrency: 4

# Names shown per row of the resource table
summary_names: 3

# Analyze resources declared in child modules
include_child_modules: false

# Monthly USD approximations for usage-billed resources
# usage_estimates:
#   aws_lambda_function: 2.00
#   aws_dynamodb_table: 5.00
#   aws_sqs_queue: 0.40

# Binary plan conversion
# terraform:
#   bin: terraform
#   dir: .

# AWS pricing MCP server (pricing_source: mcp)
# mcp:
#   command: uvx
#   args:
#     - awslabs.aws-pricing-mcp-server@latest
#   env:
#     FASTMCP_LOG_LEVEL: ERROR
#   env_file: .env
#   tool: get_pricing
`

const sampleIAMPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "PlanSpectrePricingReadOnly",
      "Effect": "Allow",
      "Action": [
        "pricing:GetProducts",
        "pricing:DescribeServices",
        "pricing:GetAttributeValues"
      ],
      "Resource": "*"
    }
  ]
}
`
