// Package aws builds SDK clients for the live pricing lookup.
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// The Price List query API is served from a few regions only.
const (
	pricingRegionUS = "us-east-1"
	pricingRegionEU = "eu-central-1"
	pricingRegionAP = "ap-south-1"
)

// Client wraps the AWS SDK configuration for creating service clients.
type Client struct {
	cfg aws.Config
}

// NewClient creates a new AWS client using the specified profile and region.
// If profile is empty, the default credential chain is used.
// If region is empty, the default region from config/env is used.
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{cfg: cfg}, nil
}

// Config returns the underlying AWS config.
func (c *Client) Config() aws.Config {
	return c.cfg
}

// ConfigForRegion returns a copy of the AWS config with the region overridden.
func (c *Client) ConfigForRegion(region string) aws.Config {
	cfg := c.cfg.Copy()
	cfg.Region = region
	return cfg
}

// STSAPI is the subset of the STS client used to verify credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity is the account and principal the credentials resolve to.
type Identity struct {
	Account string
	ARN     string
}

// CallerIdentity verifies the loaded credentials before any pricing call.
func (c *Client) CallerIdentity(ctx context.Context) (Identity, error) {
	return callerIdentity(ctx, sts.NewFromConfig(c.cfg))
}

func callerIdentity(ctx context.Context, api STSAPI) (Identity, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}
	id := Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
	}
	slog.Debug("Resolved AWS identity", "account", id.Account, "arn", id.ARN)
	return id, nil
}

// PricingClient returns a Price List client on the endpoint closest to
// the analyzed region. Prices for any region can be queried from any
// endpoint.
func (c *Client) PricingClient(analyzedRegion string) *pricing.Client {
	endpoint := PricingEndpointRegion(analyzedRegion)
	slog.Debug("Using pricing endpoint", "endpoint", endpoint, "region", analyzedRegion)
	return pricing.NewFromConfig(c.ConfigForRegion(endpoint))
}

// PricingEndpointRegion maps a region to the pricing API endpoint region.
func PricingEndpointRegion(region string) string {
	switch {
	case strings.HasPrefix(region, "eu-"), strings.HasPrefix(region, "me-"), strings.HasPrefix(region, "af-"):
		return pricingRegionEU
	case strings.HasPrefix(region, "ap-"):
		return pricingRegionAP
	default:
		return pricingRegionUS
	}
}
