package pricing

import "context"

// StaticLookup answers from a price Table without any I/O.
type StaticLookup struct {
	table *Table
}

// NewStaticLookup returns a lookup over t, or the embedded table when t is nil.
func NewStaticLookup(t *Table) *StaticLookup {
	if t == nil {
		t = DefaultTable()
	}
	return &StaticLookup{table: t}
}

func (s *StaticLookup) Lookup(ctx context.Context, service, sku, region string) (Rate, error) {
	if err := ctx.Err(); err != nil {
		return Rate{}, callErr(ctx, service, sku, region, err)
	}
	rate, ok := s.table.Hourly(service, sku, region)
	if !ok {
		return Rate{}, lookupErr(KindNotFound, service, sku, region, nil)
	}
	return Rate{HourlyRate: rate, Currency: CurrencyUSD}, nil
}
