package pricing

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspricing "github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// PricingAPI is the subset of the AWS Pricing client used by AWSLookup.
type PricingAPI interface {
	GetProducts(ctx context.Context, params *awspricing.GetProductsInput, optFns ...func(*awspricing.Options)) (*awspricing.GetProductsOutput, error)
}

// AWSLookup queries the AWS Price List API.
type AWSLookup struct {
	client PricingAPI
}

// NewAWSLookup creates a lookup backed by the Price List API.
func NewAWSLookup(client PricingAPI) *AWSLookup {
	return &AWSLookup{client: client}
}

func (l *AWSLookup) Lookup(ctx context.Context, service, sku, region string) (Rate, error) {
	q, ok := queryFor(service, sku, region)
	if !ok {
		return Rate{}, lookupErr(KindNotFound, service, sku, region, nil)
	}

	filters := make([]types.Filter, 0, len(q.attrs))
	for _, a := range q.attrs {
		filters = append(filters, types.Filter{
			Field: aws.String(a.field),
			Type:  types.FilterTypeTermMatch,
			Value: aws.String(a.value),
		})
	}

	slog.Debug("Querying AWS pricing", "service_code", q.serviceCode, "sku", sku, "region", region)
	out, err := l.client.GetProducts(ctx, &awspricing.GetProductsInput{
		ServiceCode: aws.String(q.serviceCode),
		Filters:     filters,
		MaxResults:  aws.Int32(10),
	})
	if err != nil {
		return Rate{}, callErr(ctx, service, sku, region, err)
	}

	price, err := parsePriceList(out.PriceList)
	if err != nil {
		return Rate{}, priceListErr(service, sku, region, err)
	}
	return Rate{HourlyRate: price, Currency: CurrencyUSD}, nil
}

type attr struct {
	field string
	value string
}

type productQuery struct {
	serviceCode string
	attrs       []attr
}

// queryFor builds the product filter for a priced service. RDS assumes
// MySQL Single-AZ; multi-AZ is applied by the caller.
func queryFor(service, sku, region string) (productQuery, bool) {
	switch service {
	case "EC2":
		return productQuery{serviceCode: "AmazonEC2", attrs: []attr{
			{"instanceType", sku},
			{"regionCode", region},
			{"operatingSystem", "Linux"},
			{"tenancy", "Shared"},
			{"preInstalledSw", "NA"},
			{"capacitystatus", "Used"},
		}}, true
	case "RDS":
		return productQuery{serviceCode: "AmazonRDS", attrs: []attr{
			{"instanceType", sku},
			{"regionCode", region},
			{"databaseEngine", "MySQL"},
			{"deploymentOption", "Single-AZ"},
		}}, true
	case "ElastiCache":
		return productQuery{serviceCode: "AmazonElastiCache", attrs: []attr{
			{"instanceType", sku},
			{"regionCode", region},
			{"cacheEngine", "Redis"},
		}}, true
	default:
		return productQuery{}, false
	}
}
