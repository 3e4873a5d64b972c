package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/cache"
	"github.com/ledgerbill/invoice-service/internal/integrations/ecb"
)

const ratesCacheKey = "rates:daily"

// GetRates returns the day's EUR reference table, consulting the cache
// before the ECB feed. Cache failures degrade to a fetch, never an error.
func (s *Service) GetRates(ctx context.Context) (*ecb.Rates, error) {
	cached, err := s.cache.Get(ctx, ratesCacheKey)
	if err == nil {
		rates := &ecb.Rates{}
		uerr := json.Unmarshal([]byte(cached), rates)
		if uerr == nil {
			return rates, nil
		}
		s.log.Warnf("Discarding unreadable cached rates: %v", uerr)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warnf("Rates cache read failed: %v", err)
	}

	rates, err := s.rates.FetchDailyRates(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rates); err == nil {
		if err := s.cache.Set(ctx, ratesCacheKey, string(raw), s.config.RatesCacheTTL); err != nil {
			s.log.Warnf("Failed to cache rates: %v", err)
		}
	}
	return rates, nil
}

// ConvertAmount converts between currencies at the day's reference rates
// and reports which day's table was used
func (s *Service) ConvertAmount(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, *ecb.Rates, error) {
	rates, err := s.GetRates(ctx)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	converted, err := billing.Convert(amount, from, to, rates.Values)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	return converted, rates, nil
}
