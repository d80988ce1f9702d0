package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
)

const (
	currentRateCacheKey = "rate:current"
	currentRateCacheTTL = 60 * time.Second
)

// ExchangeRateService maintains the append-only ARS/USD rate series and
// answers "current rate" queries. The current rate is cached in redis with a
// short TTL; redis being down degrades to a database read, never to an error.
type ExchangeRateService struct {
	rates repository.ExchangeRateRepository
	cache *redis.Client
	audit *AuditService
}

func NewExchangeRateService(rates repository.ExchangeRateRepository, cache *redis.Client, audit *AuditService) *ExchangeRateService {
	return &ExchangeRateService{rates: rates, cache: cache, audit: audit}
}

// CurrentRate returns the most recent configured rate. Missing or non-positive
// rows degrade to 1 so pricing math stays defined before the first rate is set.
func (s *ExchangeRateService) CurrentRate(ctx context.Context) decimal.Decimal {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, currentRateCacheKey).Result(); err == nil {
			if rate, perr := decimal.NewFromString(raw); perr == nil && rate.IsPositive() {
				return rate
			}
		}
	}

	latest, err := s.rates.Latest(ctx)
	if err != nil || latest == nil || !latest.ArsPerUsd.IsPositive() {
		return decimal.NewFromInt(1)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, currentRateCacheKey, latest.ArsPerUsd.String(), currentRateCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("rate cache write failed")
		}
	}
	return latest.ArsPerUsd
}

// SetRate appends a new rate row and invalidates the cache.
func (s *ExchangeRateService) SetRate(ctx context.Context, userID uuid.UUID, req dto.SetExchangeRateRequest) (*dto.ExchangeRateResponse, error) {
	if !req.ArsPerUsd.IsPositive() {
		return nil, apierror.Validation("ars_per_usd must be positive")
	}

	rate := &model.ExchangeRate{
		ArsPerUsd:     req.ArsPerUsd,
		EffectiveDate: time.Now(),
		UserID:        userID,
	}
	if err := s.rates.Create(ctx, rate); err != nil {
		log.Error().Err(err).Msg("exchange rate insert failed")
		return nil, apierror.Internal("could not save exchange rate")
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, currentRateCacheKey).Err(); err != nil {
			log.Warn().Err(err).Msg("rate cache invalidation failed")
		}
	}
	s.audit.LogAction(ctx, &userID, "EXCHANGE_RATE_SET", "exchange_rate", rate.ID.String(), "ars_per_usd="+req.ArsPerUsd.String())

	resp := toExchangeRateResponse(rate)
	return &resp, nil
}

// History returns the most recent rate rows, newest first.
func (s *ExchangeRateService) History(ctx context.Context, limit int) ([]dto.ExchangeRateResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.rates.List(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("exchange rate list failed")
		return nil, apierror.Internal("could not list exchange rates")
	}
	out := make([]dto.ExchangeRateResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toExchangeRateResponse(&rows[i]))
	}
	return out, nil
}

func toExchangeRateResponse(r *model.ExchangeRate) dto.ExchangeRateResponse {
	return dto.ExchangeRateResponse{
		ID:            r.ID.String(),
		ArsPerUsd:     r.ArsPerUsd,
		EffectiveDate: r.EffectiveDate.Format(time.RFC3339),
	}
}
