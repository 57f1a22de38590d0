package plan

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/hashicorp/terraform-exec/tfexec"
	tfjson "github.com/hashicorp/terraform-json"
)

// TerraformShow converts binary plans by running `terraform show -json`
// through terraform-exec.
type TerraformShow struct {
	// Bin is the terraform binary name or path. Empty means "terraform".
	Bin string
	// Dir is the working directory, usually the initialized configuration.
	// Empty means the current directory.
	Dir string
}

// ShowPlan runs `terraform show -json <path>` and returns the decoded plan.
func (t TerraformShow) ShowPlan(ctx context.Context, path string) (*Document, error) {
	bin := t.Bin
	if bin == "" {
		bin = "terraform"
	}
	execPath, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("find terraform binary %q: %w", bin, err)
	}

	dir := t.Dir
	if dir == "" {
		dir = "."
	}
	tf, err := tfexec.NewTerraform(dir, execPath)
	if err != nil {
		return nil, fmt.Errorf("prepare terraform in %s: %w", dir, err)
	}

	p, err := tf.ShowPlanFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s show -json %s: %w", bin, path, err)
	}
	return FromPlan(p), nil
}

// FromPlan wraps a fully decoded tfjson.Plan.
func FromPlan(p *tfjson.Plan) *Document {
	if p == nil {
		return nil
	}
	return &Document{
		FormatVersion:    p.FormatVersion,
		TerraformVersion: p.TerraformVersion,
		PlannedValues:    p.PlannedValues,
		ResourceChanges:  p.ResourceChanges,
		Configuration:    p.Config,
	}
}
