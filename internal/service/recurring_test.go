package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/repository"
)

func TestCreateRecurringProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := authedCtx(1)
	customer := &models.Customer{UserID: 1, Name: "Acme Corp", Email: "billing@acme.test"}
	require.NoError(t, env.store.CreateCustomer(ctx, customer))

	profile, err := env.svc.CreateRecurringProfile(ctx, RecurringInput{
		CustomerID:  customer.ID,
		Description: "Hosting plan",
		Currency:    "usd",
		Amount:      d("49.99"),
		TaxPercent:  d("20"),
		Frequency:   models.FrequencyMonthly,
		StartDate:   day("2025-04-01"),
	})
	require.NoError(t, err)
	assert.NotZero(t, profile.ID)
	assert.Equal(t, "USD", profile.Currency)
	assert.Equal(t, day("2025-04-01"), profile.NextRun)
	assert.True(t, env.store.profiles[profile.ID].Active)

	listed, err := env.svc.ListRecurringProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestCreateRecurringProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := authedCtx(1)
	customer := &models.Customer{UserID: 1, Name: "Acme Corp"}
	require.NoError(t, env.store.CreateCustomer(ctx, customer))

	tests := []struct {
		name  string
		input RecurringInput
	}{
		{name: "blank description", input: RecurringInput{CustomerID: customer.ID, Currency: "USD", Amount: d("10"), Frequency: models.FrequencyMonthly}},
		{name: "zero amount", input: RecurringInput{CustomerID: customer.ID, Description: "X", Currency: "USD", Amount: d("0"), Frequency: models.FrequencyMonthly}},
		{name: "negative tax", input: RecurringInput{CustomerID: customer.ID, Description: "X", Currency: "USD", Amount: d("10"), TaxPercent: d("-1"), Frequency: models.FrequencyMonthly}},
		{name: "unknown frequency", input: RecurringInput{CustomerID: customer.ID, Description: "X", Currency: "USD", Amount: d("10"), Frequency: models.Frequency("daily")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateRecurringProfile(ctx, tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	end := day("2025-01-01")
	_, err := env.svc.CreateRecurringProfile(ctx, RecurringInput{
		CustomerID:  customer.ID,
		Description: "X",
		Currency:    "USD",
		Amount:      d("10"),
		Frequency:   models.FrequencyMonthly,
		StartDate:   day("2025-03-01"),
		EndDate:     &end,
	})
	assert.ErrorIs(t, err, ErrInvalidInput, "end date before start date")

	_, err = env.svc.CreateRecurringProfile(ctx, RecurringInput{
		CustomerID:  999,
		Description: "X",
		Currency:    "USD",
		Amount:      d("10"),
		Frequency:   models.FrequencyMonthly,
	})
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)

	assert.Empty(t, env.store.profiles)
}

func TestDeactivateRecurringProfileScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := authedCtx(1)
	customer := &models.Customer{UserID: 1, Name: "Acme Corp"}
	require.NoError(t, env.store.CreateCustomer(ctx, customer))

	profile, err := env.svc.CreateRecurringProfile(ctx, RecurringInput{
		CustomerID:  customer.ID,
		Description: "Hosting plan",
		Currency:    "USD",
		Amount:      d("10"),
		Frequency:   models.FrequencyMonthly,
	})
	require.NoError(t, err)

	err = env.svc.DeactivateRecurringProfile(authedCtx(2), profile.ID)
	assert.ErrorIs(t, err, repository.ErrProfileNotFound, "another user cannot switch the profile off")
	assert.True(t, env.store.profiles[profile.ID].Active)

	require.NoError(t, env.svc.DeactivateRecurringProfile(ctx, profile.ID))
	assert.False(t, env.store.profiles[profile.ID].Active)
}
