// Package cost aggregates per-resource estimates into a cost report.
package cost

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/planspectre/internal/estimate"
)

// Currency is the only currency the engine reports in.
const Currency = "USD"

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	cent    = decimal.New(1, -2)
)

// Report is the aggregated cost of a plan. Money fields are rounded to
// cents; per-service values sum exactly to TotalMonthlyCost.
type Report struct {
	TotalMonthlyCost decimal.Decimal
	TotalAnnualCost  decimal.Decimal
	CostByService    map[string]decimal.Decimal
	CostByResource   []estimate.ResourceCost
	Region           string
	Currency         string
}

// Aggregate sums costs at full precision and rounds once at the end.
// The result does not depend on the order of costs.
func Aggregate(costs []estimate.ResourceCost, region string) Report {
	total := decimal.Zero
	byService := make(map[string]decimal.Decimal)
	for _, c := range costs {
		total = total.Add(c.MonthlyCost)
		byService[c.Service] = byService[c.Service].Add(c.MonthlyCost)
	}

	monthly := total.Round(2)
	byResource := make([]estimate.ResourceCost, len(costs))
	copy(byResource, costs)

	return Report{
		TotalMonthlyCost: monthly,
		TotalAnnualCost:  monthly.Mul(twelve).Round(2),
		CostByService:    apportion(byService, monthly),
		CostByResource:   byResource,
		Region:           region,
		Currency:         Currency,
	}
}

// apportion rounds each service down to cents, then hands the cents left
// over to the services with the largest remainders (ties by name) so the
// rounded services add up to total.
func apportion(raw map[string]decimal.Decimal, total decimal.Decimal) map[string]decimal.Decimal {
	type share struct {
		service   string
		floor     decimal.Decimal
		remainder decimal.Decimal
	}

	shares := make([]share, 0, len(raw))
	allocated := decimal.Zero
	for service, amount := range raw {
		floor := amount.Mul(hundred).Floor().Div(hundred)
		shares = append(shares, share{service: service, floor: floor, remainder: amount.Sub(floor)})
		allocated = allocated.Add(floor)
	}

	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].remainder.Cmp(shares[j].remainder); c != 0 {
			return c > 0
		}
		return shares[i].service < shares[j].service
	})

	left := total.Sub(allocated).Div(cent).IntPart()
	out := make(map[string]decimal.Decimal, len(shares))
	for i, s := range shares {
		v := s.floor
		if int64(i) < left {
			v = v.Add(cent)
		}
		out[s.service] = v
	}
	return out
}

// ByAddress indexes CostByResource by resource address.
func (r Report) ByAddress() map[string]estimate.ResourceCost {
	out := make(map[string]estimate.ResourceCost, len(r.CostByResource))
	for _, c := range r.CostByResource {
		out[c.ResourceAddress] = c
	}
	return out
}

// MarshalJSON renders money as numbers rounded to cents.
func (r Report) MarshalJSON() ([]byte, error) {
	byService := make(map[string]float64, len(r.CostByService))
	for k, v := range r.CostByService {
		byService[k] = v.Round(2).InexactFloat64()
	}
	byResource := r.CostByResource
	if byResource == nil {
		byResource = []estimate.ResourceCost{}
	}
	return json.Marshal(struct {
		TotalMonthlyCost float64                 `json:"total_monthly_cost"`
		TotalAnnualCost  float64                 `json:"total_annual_cost"`
		CostByService    map[string]float64      `json:"cost_by_service"`
		CostByResource   []estimate.ResourceCost `json:"cost_by_resource"`
		Region           string                  `json:"region"`
		Currency         string                  `json:"currency"`
	}{
		TotalMonthlyCost: r.TotalMonthlyCost.Round(2).InexactFloat64(),
		TotalAnnualCost:  r.TotalAnnualCost.Round(2).InexactFloat64(),
		CostByService:    byService,
		CostByResource:   byResource,
		Region:           r.Region,
		Currency:         r.Currency,
	})
}
