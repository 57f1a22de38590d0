package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ppiankov/planspectre/internal/config"
	"github.com/ppiankov/planspectre/internal/logging"
)

var (
	verbose bool
	profile string
	version string
	commit  string
	date    string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "planspectre",
	Short: "planspectre: Terraform plan cost and risk analyzer",
	Long: `planspectre reads a Terraform plan before it is applied and reports what the
planned AWS resources will cost and which of them are configured insecurely.

Costs are monthly estimates in USD, priced from an embedded table, the AWS
Price List API, or an AWS pricing MCP server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)
		loaded, err := config.Load(".")
		if err != nil {
			slog.Warn("Failed to load config file", "error", err)
		} else {
			cfg = loaded
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS profile name (pricing-source aws)")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
