// Package pricing derives ARS sale prices from a product's USD cost basis,
// margin and the ARS/USD exchange rate. All functions are pure: same inputs,
// same output, no hidden state.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/weps89/lb-electronica/internal/model"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	// Fixed surcharge policy over the cash price. Not configurable per product.
	cardFactor     = decimal.NewFromFloat(1.36)
	transferFactor = decimal.NewFromFloat(1.10)
)

// EffectiveRate picks the rate a product is priced at: the rate locked in at
// its last stock-in when that is higher than the current market rate, else the
// current rate. A price never drops below what the current rate implies.
// Stock rates <= 1 are treated as unset.
func EffectiveRate(p *model.Product, currentArsPerUsd decimal.Decimal) decimal.Decimal {
	stockRate := currentArsPerUsd
	if p.LastStockExchangeRateArs.GreaterThan(one) {
		stockRate = p.LastStockExchangeRateArs
	}
	if stockRate.GreaterThan(currentArsPerUsd) {
		return stockRate
	}
	return currentArsPerUsd
}

// CashPrice is the ARS list price for cash payment, rounded to 2 decimals.
// Intermediate USD math keeps full decimal precision.
func CashPrice(p *model.Product, currentArsPerUsd decimal.Decimal) decimal.Decimal {
	baseUsd := p.CostPrice.Mul(one.Add(p.MarginPercent.Div(hundred)))
	return baseUsd.Mul(EffectiveRate(p, currentArsPerUsd)).Round(2)
}

// FinalPrice is the ARS price for the given payment method: cash price as-is,
// card ×1.36, transfer ×1.10, each rounded to 2 decimals.
func FinalPrice(p *model.Product, method model.PaymentMethod, currentArsPerUsd decimal.Decimal) decimal.Decimal {
	cash := CashPrice(p, currentArsPerUsd)
	switch method {
	case model.PaymentCard:
		return cash.Mul(cardFactor).Round(2)
	case model.PaymentTransfer:
		return cash.Mul(transferFactor).Round(2)
	default:
		return cash
	}
}

// SalePriceUsd derives the USD list price from a landed unit cost and margin.
// Kept unrounded — it is a cost-basis figure, not a customer-facing amount.
func SalePriceUsd(unitCostUsd, marginPercent decimal.Decimal) decimal.Decimal {
	return unitCostUsd.Mul(one.Add(marginPercent.Div(hundred)))
}
