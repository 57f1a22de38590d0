package security

import "github.com/ppiankov/planspectre/internal/plan"

// RDSPublicRule flags database instances reachable from the internet.
type RDSPublicRule struct{}

func (RDSPublicRule) ID() string      { return "RDS_PUBLICLY_ACCESSIBLE" }
func (RDSPublicRule) Name() string    { return "Publicly accessible RDS instance" }
func (RDSPublicRule) Types() []string { return []string{"aws_db_instance"} }

func (rule RDSPublicRule) Evaluate(r plan.Resource) []Finding {
	if on, _ := r.Values.Bool("publicly_accessible"); !on {
		return nil
	}
	return []Finding{newFinding(rule, r, SeverityHigh,
		"RDS instance is publicly accessible",
		"Set publicly_accessible = false and reach the database through private subnets.")}
}

// RDSUnencryptedRule flags databases with storage encryption explicitly off.
type RDSUnencryptedRule struct{}

func (RDSUnencryptedRule) ID() string      { return "RDS_UNENCRYPTED" }
func (RDSUnencryptedRule) Name() string    { return "Unencrypted RDS storage" }
func (RDSUnencryptedRule) Types() []string { return []string{"aws_db_instance", "aws_rds_cluster"} }

func (rule RDSUnencryptedRule) Evaluate(r plan.Resource) []Finding {
	if on, set := r.Values.Bool("storage_encrypted"); !set || on {
		return nil
	}
	return []Finding{newFinding(rule, r, SeverityMedium,
		"RDS storage encryption is disabled",
		"Set storage_encrypted = true; encryption cannot be enabled in place later.")}
}

// EBSUnencryptedRule flags volumes with encryption explicitly off.
type EBSUnencryptedRule struct{}

func (EBSUnencryptedRule) ID() string      { return "EBS_UNENCRYPTED" }
func (EBSUnencryptedRule) Name() string    { return "Unencrypted EBS volume" }
func (EBSUnencryptedRule) Types() []string { return []string{"aws_ebs_volume"} }

func (rule EBSUnencryptedRule) Evaluate(r plan.Resource) []Finding {
	if on, set := r.Values.Bool("encrypted"); !set || on {
		return nil
	}
	return []Finding{newFinding(rule, r, SeverityMedium,
		"EBS volume encryption is disabled",
		"Set encrypted = true or enable EBS encryption by default for the account.")}
}
