// Package pricing resolves unit rates for AWS SKUs. It carries an embedded
// fallback table and the Lookup implementations the estimator consumes.
package pricing

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// HoursPerMonth is the always-on assumption used to turn hourly rates into
// monthly cost (24h x 30.4 days).
const HoursPerMonth = 730

// CurrencyUSD is the only currency the embedded table and lookups produce.
const CurrencyUSD = "USD"

// Table kinds for flat monthly prices.
const (
	FixedNATGateway = "nat_gateway"
	FixedALB        = "alb"
	FixedNLB        = "nlb"
	FixedGWLB       = "gwlb"
	FixedEIP        = "eip"
	FixedEKS        = "eks"
	FixedCLB        = "clb"
	FixedEndpoint   = "vpc_endpoint"
)

const fallbackRegion = "us-east-1"

//go:embed pricing_data.json
var pricingData []byte

// Rate is a unit price returned by a Lookup.
type Rate struct {
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	Currency   string          `json:"currency"`
}

// Lookup resolves the hourly on-demand rate of a SKU. service is a
// classifier label such as "EC2" or "RDS". Failures are *LookupError.
type Lookup interface {
	Lookup(ctx context.Context, service, sku, region string) (Rate, error)
}

// Table is a static price table keyed by kind, then SKU, then region.
// Regions missing from an entry fall back to us-east-1.
type Table struct {
	data map[string]map[string]map[string]float64
}

var defaultTable = mustParseTable(pricingData)

func mustParseTable(raw []byte) *Table {
	t, err := ParseTable(raw)
	if err != nil {
		slog.Warn("Failed to parse embedded pricing data", "error", err)
		return &Table{data: make(map[string]map[string]map[string]float64)}
	}
	return t
}

// DefaultTable returns the embedded fallback table.
func DefaultTable() *Table {
	return defaultTable
}

// ParseTable decodes a price table in the embedded JSON layout.
func ParseTable(raw []byte) (*Table, error) {
	var data map[string]map[string]map[string]float64
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &Table{data: data}, nil
}

func (t *Table) lookup(kind, sku, region string) (decimal.Decimal, bool) {
	skus, ok := t.data[strings.ToLower(kind)]
	if !ok {
		return decimal.Zero, false
	}
	regions, ok := skus[sku]
	if !ok {
		return decimal.Zero, false
	}
	price, ok := regions[region]
	if !ok {
		price, ok = regions[fallbackRegion]
		if !ok {
			return decimal.Zero, false
		}
	}
	return decimal.NewFromFloat(price), true
}

// Hourly returns the hourly rate of an instance-style SKU. service is
// matched case-insensitively ("EC2" and "ec2" are the same kind).
func (t *Table) Hourly(service, sku, region string) (decimal.Decimal, bool) {
	return t.lookup(service, sku, region)
}

// Monthly returns the flat monthly price of a fixed-cost resource kind.
func (t *Table) Monthly(kind, region string) (decimal.Decimal, bool) {
	return t.lookup(kind, "default", region)
}

// StoragePerGiB returns the per GiB-month price of an EBS volume type.
func (t *Table) StoragePerGiB(volumeType, region string) (decimal.Decimal, bool) {
	return t.lookup("ebs", volumeType, region)
}
