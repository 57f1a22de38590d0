package commands

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ppiankov/planspectre/internal/config"
)

// enhanceError wraps an error with context and suggestions for common
// credential, pricing and tooling issues.
func enhanceError(action string, err error) error {
	msg := err.Error()

	var hint string
	switch {
	case strings.Contains(msg, "NoCredentialProviders") || strings.Contains(msg, "failed to retrieve credentials"):
		hint = "Configure AWS credentials: set AWS_PROFILE, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, or run 'aws configure'. Use --pricing-source static to work offline"
	case strings.Contains(msg, "ExpiredToken"):
		hint = "AWS session token expired. Refresh credentials or run 'aws sso login'"
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "UnauthorizedAccess"):
		hint = "Insufficient permissions. Apply the IAM policy from 'planspectre init' (pricing:GetProducts) to your role/user"
	case strings.Contains(msg, "RequestExpired"):
		hint = "Request expired. Check system clock synchronization"
	case strings.Contains(msg, "Throttling"):
		hint = "AWS API rate limit hit. Lower --concurrency or raise --cache-ttl"
	case strings.Contains(msg, "executable file not found"):
		hint = "Command not found in PATH. Install terraform for binary plans, or the MCP server command configured under mcp.command"
	case strings.Contains(msg, "planned_values"):
		hint = "Input is not a Terraform plan. Produce one with 'terraform show -json plan.tfplan > plan.json'"
	}

	if hint != "" {
		return fmt.Errorf("%s: %w\n  hint: %s", action, err, hint)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// computeTargetHash generates a SHA256 hash for the target URI.
func computeTargetHash(planPath, region string) string {
	input := fmt.Sprintf("plan:%s,region:%s", planPath, region)
	h := sha256.Sum256([]byte(input))
	return fmt.Sprintf("sha256:%x", h)
}

// mcpEnv builds the MCP server environment. Variables from env_file are
// loaded first; explicit env entries override them.
func mcpEnv(m config.MCP) ([]string, error) {
	vars := make(map[string]string)
	if m.EnvFile != "" {
		fileVars, err := godotenv.Read(m.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("read mcp env_file %s: %w", m.EnvFile, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for k, v := range m.Env {
		vars[k] = v
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}
