package security

import (
	"fmt"
	"strings"

	"github.com/ppiankov/planspectre/internal/plan"
)

var openCIDRs = map[string]bool{
	"0.0.0.0/0": true,
	"::/0":      true,
}

// OpenIngressRule flags ingress rules reachable from the whole internet.
// Each offending ingress block produces one finding.
type OpenIngressRule struct{}

func (OpenIngressRule) ID() string   { return "SG_OPEN_INGRESS" }
func (OpenIngressRule) Name() string { return "Security group ingress open to the internet" }
func (OpenIngressRule) Types() []string {
	return []string{
		"aws_security_group",
		"aws_security_group_rule",
		"aws_vpc_security_group_ingress_rule",
	}
}

func (rule OpenIngressRule) Evaluate(r plan.Resource) []Finding {
	var findings []Finding
	check := func(block plan.Values, cidrs []string) {
		open := openOnly(cidrs)
		if len(open) == 0 {
			return
		}
		findings = append(findings, newFinding(rule, r, SeverityHigh,
			fmt.Sprintf("Ingress %s open to %s", portRange(block), strings.Join(open, ", ")),
			"Restrict ingress to known CIDR ranges or reference a source security group."))
	}

	switch r.Type {
	case "aws_security_group":
		for _, block := range r.Values.Blocks("ingress") {
			check(block, append(block.Strings("cidr_blocks"), block.Strings("ipv6_cidr_blocks")...))
		}
	case "aws_security_group_rule":
		if r.Values.String("type") == "ingress" {
			check(r.Values, append(r.Values.Strings("cidr_blocks"), r.Values.Strings("ipv6_cidr_blocks")...))
		}
	case "aws_vpc_security_group_ingress_rule":
		var cidrs []string
		for _, k := range []string{"cidr_ipv4", "cidr_ipv6"} {
			if c := r.Values.String(k); c != "" {
				cidrs = append(cidrs, c)
			}
		}
		check(r.Values, cidrs)
	}
	return findings
}

func openOnly(cidrs []string) []string {
	var out []string
	for _, c := range cidrs {
		if openCIDRs[c] {
			out = append(out, c)
		}
	}
	return out
}

func portRange(v plan.Values) string {
	proto := v.StringOr("ip_protocol", v.String("protocol"))
	if proto == "-1" || proto == "all" {
		return "on all ports"
	}
	from, to := v.Int("from_port", -1), v.Int("to_port", -1)
	switch {
	case from < 0:
		return "rule"
	case from == to:
		return fmt.Sprintf("on port %d", from)
	default:
		return fmt.Sprintf("on ports %d-%d", from, to)
	}
}
