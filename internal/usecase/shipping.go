package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
)

const anyCountry = "*"

// ShippingRates maps ISO country codes to flat shipping costs.
type ShippingRates struct {
	rates map[string]decimal.Decimal
}

// ParseShippingRates parses "CZ=150,SK=300,*=500". The "*" entry applies to
// every country not listed explicitly.
func ParseShippingRates(spec string) (ShippingRates, error) {
	rates := ShippingRates{rates: make(map[string]decimal.Decimal)}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		country, amount, ok := strings.Cut(entry, "=")
		if !ok {
			return ShippingRates{}, fmt.Errorf("shipping rate %q: expected COUNTRY=AMOUNT", entry)
		}
		country = strings.ToUpper(strings.TrimSpace(country))
		cost, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return ShippingRates{}, fmt.Errorf("shipping rate %q: %w", entry, err)
		}
		if cost.IsNegative() {
			return ShippingRates{}, fmt.Errorf("shipping rate %q is negative", entry)
		}
		if _, dup := rates.rates[country]; dup {
			return ShippingRates{}, fmt.Errorf("shipping rate for %s defined twice", country)
		}
		rates.rates[country] = cost
	}
	if len(rates.rates) == 0 {
		return ShippingRates{}, fmt.Errorf("no shipping rates configured")
	}
	return rates, nil
}

// For returns shipping cost for country. Countries without a rate are not
// shipped to.
func (r ShippingRates) For(country string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(country))
	if cost, ok := r.rates[code]; ok {
		return cost, nil
	}
	if cost, ok := r.rates[anyCountry]; ok {
		return cost, nil
	}
	return decimal.Zero, fmt.Errorf("%w: shipping to %q is not available", domainErrors.ErrValidation, country)
}
