// Package classify maps Terraform AWS resource types to billable services.
package classify

import "strings"

// Other is returned for resource types that are not AWS types at all.
const Other = "Other"

// Rule maps a resource type prefix to a service name.
type Rule struct {
	Prefix  string
	Service string
}

// rules is checked first-match-wins. More specific prefixes must come
// before the shorter prefixes they share a stem with.
var rules = []Rule{
	{"aws_db_", "RDS"},
	{"aws_rds_", "RDS"},
	{"aws_instance", "EC2"},
	{"aws_launch_template", "EC2"},
	{"aws_autoscaling_", "EC2"},
	{"aws_ebs_", "EBS"},
	{"aws_volume_attachment", "EBS"},
	{"aws_eip", "EC2"},
	{"aws_nat_gateway", "VPC"},
	{"aws_vpc_security_group_", "VPC"},
	{"aws_security_group", "VPC"},
	{"aws_vpc", "VPC"},
	{"aws_subnet", "VPC"},
	{"aws_route53_", "Route53"},
	{"aws_route", "VPC"},
	{"aws_internet_gateway", "VPC"},
	{"aws_network_acl", "VPC"},
	{"aws_lb", "ELB"},
	{"aws_alb", "ELB"},
	{"aws_elb", "ELB"},
	{"aws_s3_", "S3"},
	{"aws_lambda_", "Lambda"},
	{"aws_dynamodb_", "DynamoDB"},
	{"aws_elasticache_", "ElastiCache"},
	{"aws_eks_", "EKS"},
	{"aws_ecs_", "ECS"},
	{"aws_ecr_", "ECR"},
	{"aws_sqs_", "SQS"},
	{"aws_sns_", "SNS"},
	{"aws_api_gateway_", "APIGateway"},
	{"aws_apigatewayv2_", "APIGateway"},
	{"aws_cloudwatch_", "CloudWatch"},
	{"aws_cloudfront_", "CloudFront"},
	{"aws_kinesis_", "Kinesis"},
	{"aws_iam_", "IAM"},
	{"aws_kms_", "KMS"},
	{"aws_secretsmanager_", "SecretsManager"},
	{"aws_efs_", "EFS"},
}

// Rules returns a copy of the classification table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Service returns the billable service for resourceType. It never fails:
// unmatched aws_ types are labeled by their second token upper-cased and
// anything else is Other.
func Service(resourceType string) string {
	for _, r := range rules {
		if strings.HasPrefix(resourceType, r.Prefix) {
			return r.Service
		}
	}
	return fallback(resourceType)
}

func fallback(resourceType string) string {
	parts := strings.Split(resourceType, "_")
	if len(parts) >= 2 && parts[0] == "aws" && parts[1] != "" {
		return strings.ToUpper(parts[1])
	}
	return Other
}
