// Package estimate computes the monthly cost of planned AWS resources.
package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/planspectre/internal/classify"
	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/pricing"
)

// PricingSource records where a resource's monthly cost came from.
type PricingSource string

const (
	SourceLookup   PricingSource = "lookup"
	SourceFallback PricingSource = "fallback"
	SourceDefault  PricingSource = "default"
	SourceFixed    PricingSource = "fixed"
	SourceUsage    PricingSource = "usage_estimate"
	SourceFree     PricingSource = "free"
	SourceUnpriced PricingSource = "unpriced"
)

// DefaultHourlyRate is charged for a SKU unknown to both the lookup and the
// fallback table.
var DefaultHourlyRate = decimal.RequireFromString("0.10")

// ResourceCost is the estimated monthly cost of one resource.
type ResourceCost struct {
	ResourceAddress string
	ResourceType    string
	Service         string
	MonthlyCost     decimal.Decimal
	PricingSource   PricingSource
	ConfigSnapshot  map[string]any
}

// MarshalJSON renders MonthlyCost rounded to cents.
func (c ResourceCost) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ResourceAddress string         `json:"resource_address"`
		ResourceType    string         `json:"resource_type"`
		Service         string         `json:"service"`
		MonthlyCost     float64        `json:"monthly_cost"`
		PricingSource   PricingSource  `json:"pricing_source"`
		ConfigSnapshot  map[string]any `json:"config_snapshot"`
	}{
		ResourceAddress: c.ResourceAddress,
		ResourceType:    c.ResourceType,
		Service:         c.Service,
		MonthlyCost:     c.MonthlyCost.Round(2).InexactFloat64(),
		PricingSource:   c.PricingSource,
		ConfigSnapshot:  c.ConfigSnapshot,
	})
}

// Options tunes the estimator. Zero values select the defaults.
type Options struct {
	HoursPerMonth     int
	DefaultHourlyRate decimal.Decimal
	Concurrency       int
	LookupTimeout     time.Duration
	// UsageEstimates overrides the monthly approximation per resource type.
	UsageEstimates map[string]decimal.Decimal
	// Table is the fallback price table. Nil uses the embedded one.
	Table *pricing.Table
}

// Estimator prices resources through a Lookup with table fallback.
type Estimator struct {
	lookup pricing.Lookup
	table  *pricing.Table
	hours  decimal.Decimal
	def    decimal.Decimal
	conc   int
	tmo    time.Duration
	usage  map[string]decimal.Decimal
}

// New creates an Estimator. A nil lookup resolves every SKU from the
// fallback table.
func New(lookup pricing.Lookup, opts Options) *Estimator {
	if opts.HoursPerMonth <= 0 {
		opts.HoursPerMonth = pricing.HoursPerMonth
	}
	if opts.DefaultHourlyRate.IsZero() {
		opts.DefaultHourlyRate = DefaultHourlyRate
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Table == nil {
		opts.Table = pricing.DefaultTable()
	}

	usage := make(map[string]decimal.Decimal, len(defaultUsage)+len(opts.UsageEstimates))
	for k, v := range defaultUsage {
		usage[k] = v
	}
	for k, v := range opts.UsageEstimates {
		if v.IsNegative() {
			continue
		}
		usage[k] = v
	}

	return &Estimator{
		lookup: lookup,
		table:  opts.Table,
		hours:  decimal.NewFromInt(int64(opts.HoursPerMonth)),
		def:    opts.DefaultHourlyRate,
		conc:   opts.Concurrency,
		tmo:    opts.LookupTimeout,
		usage:  usage,
	}
}

// Estimate prices a single resource.
func (e *Estimator) Estimate(ctx context.Context, r plan.Resource, region string) ResourceCost {
	return e.EstimateAll(ctx, []plan.Resource{r}, region)[0]
}

// EstimateAll prices resources and returns one cost per resource in input
// order. Unique rate keys are looked up once, concurrently. It never fails:
// lookup errors degrade to the fallback table and then to the default rate.
func (e *Estimator) EstimateAll(ctx context.Context, resources []plan.Resource, region string) []ResourceCost {
	handlers := make([]handler, len(resources))
	keys := make(map[rateKey]struct{})
	var order []rateKey
	for i, r := range resources {
		h := handlerFor(r.Type)
		handlers[i] = h
		if h.rateKey == nil {
			continue
		}
		k := h.rateKey(r, region)
		if _, seen := keys[k]; !seen {
			keys[k] = struct{}{}
			order = append(order, k)
		}
	}

	rates := e.resolveAll(ctx, order)

	costs := make([]ResourceCost, len(resources))
	for i, r := range resources {
		h := handlers[i]
		var rate resolvedRate
		if h.rateKey != nil {
			rate = rates[h.rateKey(r, region)]
		}
		monthly, source := h.price(e, r, region, rate)
		costs[i] = ResourceCost{
			ResourceAddress: r.Address,
			ResourceType:    r.Type,
			Service:         classify.Service(r.Type),
			MonthlyCost:     monthly,
			PricingSource:   source,
			ConfigSnapshot:  r.Values.Subset(h.snapshot...),
		}
	}
	return costs
}

func (e *Estimator) resolveAll(ctx context.Context, keys []rateKey) map[rateKey]resolvedRate {
	var (
		mu    sync.Mutex
		rates = make(map[rateKey]resolvedRate, len(keys))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.conc)

	for _, k := range keys {
		g.Go(func() error {
			rate := e.resolve(ctx, k)
			mu.Lock()
			rates[k] = rate
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return rates
}

// resolve returns the hourly rate for k: lookup, then fallback table,
// then the default rate.
func (e *Estimator) resolve(ctx context.Context, k rateKey) resolvedRate {
	if k.sku == "" {
		slog.Debug("No SKU in plan, using default rate", "service", k.service)
		return resolvedRate{hourly: e.def, source: SourceDefault}
	}

	if e.lookup != nil && lookupEligible(k) {
		rate, err := e.lookupWithTimeout(ctx, k)
		if err == nil {
			err = checkRate(rate)
		}
		if err == nil {
			return resolvedRate{hourly: rate.HourlyRate, source: SourceLookup}
		}
		slog.Warn("Pricing lookup failed, using fallback", "service", k.service, "sku", k.sku, "region", k.region, "error", err)
	}

	if hourly, ok := e.table.Hourly(k.service, k.sku, k.region); ok {
		return resolvedRate{hourly: hourly, source: SourceFallback}
	}
	slog.Debug("SKU not in fallback table, using default rate", "service", k.service, "sku", k.sku)
	return resolvedRate{hourly: e.def, source: SourceDefault}
}

func checkRate(rate pricing.Rate) error {
	if rate.Currency != "" && rate.Currency != pricing.CurrencyUSD {
		return fmt.Errorf("unsupported currency %q", rate.Currency)
	}
	if rate.HourlyRate.IsNegative() {
		return fmt.Errorf("negative rate %s", rate.HourlyRate)
	}
	return nil
}

func (e *Estimator) lookupWithTimeout(ctx context.Context, k rateKey) (pricing.Rate, error) {
	if e.tmo > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.tmo)
		defer cancel()
	}
	return e.lookup.Lookup(ctx, k.service, k.sku, k.region)
}
