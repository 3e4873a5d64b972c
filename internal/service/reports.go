package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
)

// AgingReport buckets the user's open receivables in one currency by days
// past due. Aging is factual: the grace period shifts fees, not age.
func (s *Service) AgingReport(ctx context.Context, currency string, asOf time.Time) (*models.AgingReport, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if _, err := billing.CurrencyPrecision(currency); err != nil {
		return nil, err
	}

	invoices, err := s.repo.ListOpenInvoicesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	buckets := []models.AgingBucket{
		{Label: "current"},
		{Label: "1-30"},
		{Label: "31-60"},
		{Label: "61-90"},
		{Label: "90+"},
	}
	outstanding := decimal.Zero

	for i := range invoices {
		inv := &invoices[i]
		if !strings.EqualFold(inv.Currency, currency) {
			continue
		}
		days := billing.DayDifference(asOf, inv.DueDate)
		var idx int
		switch {
		case days <= 0:
			idx = 0
		case days <= 30:
			idx = 1
		case days <= 60:
			idx = 2
		case days <= 90:
			idx = 3
		default:
			idx = 4
		}
		buckets[idx].Count++
		buckets[idx].Outstanding = buckets[idx].Outstanding.Add(inv.BalanceDue)
		outstanding = outstanding.Add(inv.BalanceDue)
	}

	return &models.AgingReport{
		AsOf:        asOf,
		Currency:    currency,
		Buckets:     buckets,
		Outstanding: outstanding,
	}, nil
}

// ReceivablesSummary totals the user's collection position in one currency
func (s *Service) ReceivablesSummary(ctx context.Context, currency string, asOf time.Time) (*models.ReceivablesSummary, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if _, err := billing.CurrencyPrecision(currency); err != nil {
		return nil, err
	}

	invoices, err := s.repo.ListOpenInvoicesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.ReceivablesSummary{AsOf: asOf, Currency: currency}
	for i := range invoices {
		inv := &invoices[i]
		if !strings.EqualFold(inv.Currency, currency) {
			continue
		}
		summary.OpenInvoices++
		summary.Outstanding = summary.Outstanding.Add(inv.BalanceDue)
		if billing.DayDifference(asOf, inv.DueDate) > 0 {
			summary.Overdue = summary.Overdue.Add(inv.BalanceDue)
		}
	}

	collected, err := s.repo.SumPaymentsByUser(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	summary.Collected = collected
	return summary, nil
}
