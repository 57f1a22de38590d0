package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var errNoPrice = errors.New("no on-demand USD price in price list")

// priceListItem is the subset of an AWS price list product document that
// carries on-demand prices.
type priceListItem struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// parsePriceList returns the first non-zero on-demand USD price across
// items. Map keys are visited in sorted order so the result is stable.
// errNoPrice means the documents parsed but carried no usable price.
func parsePriceList(items []string) (decimal.Decimal, error) {
	for _, raw := range items {
		var item priceListItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return decimal.Zero, fmt.Errorf("decode price list item: %w", err)
		}
		price, ok, err := onDemandUSD(item)
		if err != nil {
			return decimal.Zero, err
		}
		if ok {
			return price, nil
		}
	}
	return decimal.Zero, errNoPrice
}

func onDemandUSD(item priceListItem) (decimal.Decimal, bool, error) {
	for _, termKey := range sortedKeys(item.Terms.OnDemand) {
		dims := item.Terms.OnDemand[termKey].PriceDimensions
		for _, dimKey := range sortedKeys(dims) {
			usd, ok := dims[dimKey].PricePerUnit[CurrencyUSD]
			if !ok {
				continue
			}
			price, err := decimal.NewFromString(usd)
			if err != nil {
				return decimal.Zero, false, fmt.Errorf("parse price %q: %w", usd, err)
			}
			if price.IsPositive() {
				return price, true, nil
			}
		}
	}
	return decimal.Zero, false, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// priceListErr maps a parsePriceList failure to a lookup error.
func priceListErr(service, sku, region string, err error) *LookupError {
	if errors.Is(err, errNoPrice) {
		return lookupErr(KindNotFound, service, sku, region, err)
	}
	return lookupErr(KindMalformed, service, sku, region, err)
}
