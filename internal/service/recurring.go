package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
)

// RecurringInput describes a new subscription profile
type RecurringInput struct {
	CustomerID  int64            `json:"customer_id"`
	Description string           `json:"description"`
	Currency    string           `json:"currency"`
	Amount      decimal.Decimal  `json:"amount"`
	TaxPercent  decimal.Decimal  `json:"tax_percent"`
	Frequency   models.Frequency `json:"frequency"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
}

// CreateRecurringProfile creates a subscription that the daily cycle will
// bill from. The first invoice is generated on the start date's cycle run.
func (s *Service) CreateRecurringProfile(ctx context.Context, input RecurringInput) (*models.RecurringProfile, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if input.TaxPercent.IsNegative() {
		return nil, fmt.Errorf("%w: tax percent must not be negative", ErrInvalidInput)
	}
	if !input.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, input.Frequency)
	}
	if _, err := billing.CurrencyPrecision(input.Currency); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindCustomerByID(ctx, input.CustomerID, userID); err != nil {
		return nil, err
	}

	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}
	if input.EndDate != nil && billing.DayDifference(*input.EndDate, startDate) < 0 {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}

	profile := &models.RecurringProfile{
		UserID:      userID,
		CustomerID:  input.CustomerID,
		Description: input.Description,
		Currency:    strings.ToUpper(input.Currency),
		Amount:      input.Amount,
		TaxPercent:  input.TaxPercent,
		Frequency:   input.Frequency,
		NextRun:     startDate,
		EndDate:     input.EndDate,
	}
	if err := s.repo.CreateRecurringProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.log.Infof("Recurring profile %d created for user %d (%s %s %s)",
		profile.ID, userID, profile.Amount, profile.Currency, profile.Frequency)
	return profile, nil
}

// ListRecurringProfiles retrieves the user's subscription profiles
func (s *Service) ListRecurringProfiles(ctx context.Context) ([]models.RecurringProfile, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRecurringProfiles(ctx, userID)
}

// DeactivateRecurringProfile switches one of the user's profiles off
func (s *Service) DeactivateRecurringProfile(ctx context.Context, id int64) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateRecurringProfile(ctx, id, userID); err != nil {
		return err
	}
	s.log.Infof("Recurring profile %d deactivated by user %d", id, userID)
	return nil
}
