package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/integrations/ecb"
)

func sampleRates() *ecb.Rates {
	return &ecb.Rates{
		Date: "2025-03-14",
		Values: map[string]decimal.Decimal{
			"EUR": d("1"),
			"USD": d("1.10"),
			"JPY": d("161.5"),
		},
	}
}

func TestGetRatesCachesFetch(t *testing.T) {
	env := newTestEnv(t)
	env.rates.rates = sampleRates()
	ctx := context.Background()

	rates, err := env.svc.GetRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", rates.Date)
	assert.Equal(t, 1, env.rates.fetches)
	assert.Equal(t, time.Hour, env.cache.lastTTL)

	// The second read is served from the cache.
	rates, err = env.svc.GetRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", rates.Date)
	assert.True(t, rates.Values["USD"].Equal(d("1.10")))
	assert.Equal(t, 1, env.rates.fetches)
}

func TestGetRatesSurvivesCorruptCache(t *testing.T) {
	env := newTestEnv(t)
	env.rates.rates = sampleRates()
	env.cache.values[ratesCacheKey] = "{nonsense"

	var logged bytes.Buffer
	env.svc.log.SetOutput(&logged)
	env.svc.log.SetLevel(logrus.WarnLevel)

	rates, err := env.svc.GetRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, env.rates.fetches)
	assert.Equal(t, "2025-03-14", rates.Date)

	// The warning names the parse failure, not the nil cache-read error.
	assert.Contains(t, logged.String(), "Discarding unreadable cached rates")
	assert.Contains(t, logged.String(), "invalid character")
	assert.NotContains(t, logged.String(), "<nil>")
}

func TestGetRatesSurvivesCacheOutage(t *testing.T) {
	env := newTestEnv(t)
	env.rates.rates = sampleRates()
	env.cache.getErr = errors.New("redis down")
	env.cache.setErr = errors.New("redis down")

	rates, err := env.svc.GetRates(context.Background())
	require.NoError(t, err, "a dead cache degrades to a fetch, never an error")
	assert.Equal(t, 1, env.rates.fetches)
	assert.Equal(t, "2025-03-14", rates.Date)
}

func TestGetRatesPropagatesFetchError(t *testing.T) {
	env := newTestEnv(t)
	env.rates.err = errors.New("feed unreachable")

	_, err := env.svc.GetRates(context.Background())
	assert.Error(t, err)
}

func TestGetRatesRoundTripsThroughCache(t *testing.T) {
	env := newTestEnv(t)
	// Prime the cache the way a previous process would have.
	raw, err := json.Marshal(sampleRates())
	require.NoError(t, err)
	env.cache.values[ratesCacheKey] = string(raw)

	rates, err := env.svc.GetRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, env.rates.fetches)
	assert.True(t, rates.Values["JPY"].Equal(d("161.5")))
}

func TestConvertAmount(t *testing.T) {
	env := newTestEnv(t)
	env.rates.rates = sampleRates()
	ctx := context.Background()

	converted, rates, err := env.svc.ConvertAmount(ctx, d("100"), "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, converted.Equal(d("110")), "got %s", converted)
	assert.Equal(t, "2025-03-14", rates.Date)

	_, _, err = env.svc.ConvertAmount(ctx, d("100"), "EUR", "XXX")
	var cfgErr *billing.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
