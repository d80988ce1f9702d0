package dto

import "github.com/shopspring/decimal"

type SetExchangeRateRequest struct {
	ArsPerUsd decimal.Decimal `json:"ars_per_usd" validate:"required"`
}

type ExchangeRateResponse struct {
	ID            string          `json:"id"`
	ArsPerUsd     decimal.Decimal `json:"ars_per_usd"`
	EffectiveDate string          `json:"effective_date"`
}
