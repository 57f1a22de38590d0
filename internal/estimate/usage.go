package estimate

import (
	"github.com/shopspring/decimal"

	"github.com/ppiankov/planspectre/internal/plan"
)

// defaultUsage holds monthly approximations for usage-priced types. A plan
// carries no traffic volume, so these assume a small always-on workload.
var defaultUsage = map[string]decimal.Decimal{
	"aws_lambda_function":      decimal.RequireFromString("2.00"),
	"aws_dynamodb_table":       decimal.RequireFromString("5.00"),
	"aws_sqs_queue":            decimal.RequireFromString("0.40"),
	"aws_sns_topic":            decimal.RequireFromString("0.50"),
	"aws_api_gateway_rest_api": decimal.RequireFromString("3.50"),
	"aws_apigatewayv2_api":     decimal.RequireFromString("1.00"),
	"aws_cloudwatch_log_group": decimal.RequireFromString("0.50"),
	"aws_s3_object":            decimal.RequireFromString("0.02"),
}

// DefaultUsageEstimates returns a copy of the built-in approximations.
func DefaultUsageEstimates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(defaultUsage))
	for k, v := range defaultUsage {
		out[k] = v
	}
	return out
}

func usageFor(e *Estimator, resourceType string, _ plan.Values) (decimal.Decimal, PricingSource) {
	cost, ok := e.usage[resourceType]
	if !ok {
		return decimal.Zero, SourceUnpriced
	}
	return cost, SourceUsage
}

// Provisioned capacity unit-hour prices (us-east-1).
var (
	dynamoRCUHour = decimal.RequireFromString("0.00013")
	dynamoWCUHour = decimal.RequireFromString("0.00065")
)

func dynamoDB(e *Estimator, resourceType string, v plan.Values) (decimal.Decimal, PricingSource) {
	if v.String("billing_mode") != "PROVISIONED" {
		return usageFor(e, resourceType, v)
	}
	rcu := decimal.NewFromInt(int64(nonNegative(v.Int("read_capacity", 0))))
	wcu := decimal.NewFromInt(int64(nonNegative(v.Int("write_capacity", 0))))
	hourly := rcu.Mul(dynamoRCUHour).Add(wcu.Mul(dynamoWCUHour))
	return hourly.Mul(e.hours), SourceFixed
}
