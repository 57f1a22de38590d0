package security

import (
	"fmt"

	"github.com/ppiankov/planspectre/internal/plan"
)

// PublicAccessBlockRule flags bucket public access block flags that are
// explicitly disabled. Absent flags are not reported.
type PublicAccessBlockRule struct{}

func (PublicAccessBlockRule) ID() string      { return "S3_PUBLIC_ACCESS_BLOCK_DISABLED" }
func (PublicAccessBlockRule) Name() string    { return "S3 public access block disabled" }
func (PublicAccessBlockRule) Types() []string { return []string{"aws_s3_bucket_public_access_block"} }

var publicAccessFlags = []struct {
	key      string
	severity Severity
}{
	{"block_public_acls", SeverityHigh},
	{"block_public_policy", SeverityMedium},
	{"ignore_public_acls", SeverityMedium},
	{"restrict_public_buckets", SeverityMedium},
}

func (rule PublicAccessBlockRule) Evaluate(r plan.Resource) []Finding {
	var findings []Finding
	for _, flag := range publicAccessFlags {
		if on, set := r.Values.Bool(flag.key); !set || on {
			continue
		}
		findings = append(findings, newFinding(rule, r, flag.severity,
			fmt.Sprintf("S3 public access block has %s disabled", flag.key),
			fmt.Sprintf("Set %s = true unless the bucket must be public.", flag.key)))
	}
	return findings
}

// PublicACLRule flags canned ACLs that grant access to everyone, on both
// aws_s3_bucket_acl and the legacy inline aws_s3_bucket.acl argument.
type PublicACLRule struct{}

func (PublicACLRule) ID() string   { return "S3_PUBLIC_ACL" }
func (PublicACLRule) Name() string { return "S3 bucket with public ACL" }
func (PublicACLRule) Types() []string {
	return []string{"aws_s3_bucket_acl", "aws_s3_bucket"}
}

var publicACLs = map[string]string{
	"public-read":       "grants public read access",
	"public-read-write": "grants public read and write access",
}

func (rule PublicACLRule) Evaluate(r plan.Resource) []Finding {
	acl := r.Values.String("acl")
	desc, ok := publicACLs[acl]
	if !ok {
		return nil
	}
	return []Finding{newFinding(rule, r, SeverityHigh,
		fmt.Sprintf("S3 bucket ACL %q %s", acl, desc),
		"Use a private ACL and grant access through bucket policies or CloudFront.")}
}
