// Package billing holds the pure billing-lifecycle calculations: late
// fees, reminder schedules and currency rounding. Nothing in this package
// touches the database, the clock or the network; callers pass every
// input explicitly, which keeps the arithmetic deterministic and testable.
package billing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// FeeType selects how a late fee grows over time.
type FeeType string

const (
	// FeeTypeFixed charges FeeAmount once, no matter how late.
	FeeTypeFixed FeeType = "fixed"
	// FeeTypePercentMonthly charges FeeAmount percent of the invoice total
	// per started 30-day month overdue.
	FeeTypePercentMonthly FeeType = "percentage_monthly"
	// FeeTypePercentDaily charges FeeAmount percent of the invoice total
	// per day overdue, optionally compounding.
	FeeTypePercentDaily FeeType = "percentage_daily"
)

const daysPerMonth = 30

var oneHundred = decimal.NewFromInt(100)

// LateFeePolicy describes a user's late-fee terms. FeeAmount is a flat
// amount for fixed policies and a percentage for the percentage policies.
// MaxFeePercent caps the accumulated fee at a share of the invoice total.
type LateFeePolicy struct {
	Enabled         bool            `json:"enabled"`
	GracePeriodDays int             `json:"grace_period_days"`
	FeeType         FeeType         `json:"fee_type"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
	MaxFeePercent   decimal.Decimal `json:"max_fee_percent"`
	CompoundDaily   bool            `json:"compound_daily"`
}

// Validate checks the policy fields and returns a ConfigError naming the
// first offending field.
func (p LateFeePolicy) Validate() error {
	if p.GracePeriodDays < 0 {
		return &ConfigError{Field: "grace_period_days", Reason: "must not be negative"}
	}
	if p.FeeAmount.IsNegative() {
		return &ConfigError{Field: "fee_amount", Reason: "must not be negative"}
	}
	if p.MaxFeePercent.IsNegative() {
		return &ConfigError{Field: "max_fee_percent", Reason: "must not be negative"}
	}
	switch p.FeeType {
	case FeeTypeFixed, FeeTypePercentMonthly, FeeTypePercentDaily:
	default:
		return &ConfigError{Field: "fee_type", Reason: fmt.Sprintf("unknown value %q", p.FeeType)}
	}
	return nil
}

// LateFeeResult is the outcome of a late-fee computation for one invoice.
type LateFeeResult struct {
	DaysOverdue int             `json:"days_overdue"`
	Fee         decimal.Decimal `json:"fee"`
	NewTotal    decimal.Decimal `json:"new_total"`
	Capped      bool            `json:"capped"`
}

// ComputeLateFee calculates the late fee owed on an invoice with the given
// pre-fee total, due on dueDate, observed at asOf. It returns nil with no
// error when the policy is disabled or the invoice is still inside its
// grace period. The fee is computed from scratch on every call rather than
// incremented, so repeated runs over the same day converge on one value.
//
// The returned amounts carry full precision; round them with
// RoundToCurrencyPrecision before persisting or display.
func ComputeLateFee(total decimal.Decimal, dueDate, asOf time.Time, policy LateFeePolicy) (*LateFeeResult, error) {
	if !policy.Enabled {
		return nil, nil
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if total.IsNegative() {
		return nil, &ConfigError{Field: "total", Reason: "must not be negative"}
	}

	daysOverdue := DayDifference(asOf, dueDate) - policy.GracePeriodDays
	if daysOverdue <= 0 {
		return nil, nil
	}

	var fee decimal.Decimal
	switch policy.FeeType {
	case FeeTypeFixed:
		fee = policy.FeeAmount
	case FeeTypePercentMonthly:
		// A started month counts in full: 31 days overdue is 2 months.
		months := int64((daysOverdue + daysPerMonth - 1) / daysPerMonth)
		fee = total.Mul(policy.FeeAmount).Div(oneHundred).Mul(decimal.NewFromInt(months))
	case FeeTypePercentDaily:
		if policy.CompoundDaily {
			rate, _ := policy.FeeAmount.Div(oneHundred).Float64()
			growth := math.Pow(1+rate, float64(daysOverdue)) - 1
			fee = total.Mul(decimal.NewFromFloat(growth))
		} else {
			fee = total.Mul(policy.FeeAmount).Div(oneHundred).Mul(decimal.NewFromInt(int64(daysOverdue)))
		}
	}

	capped := false
	maxFee := total.Mul(policy.MaxFeePercent).Div(oneHundred)
	if fee.GreaterThan(maxFee) {
		fee = maxFee
		capped = true
	}

	return &LateFeeResult{
		DaysOverdue: daysOverdue,
		Fee:         fee,
		NewTotal:    total.Add(fee),
		Capped:      capped,
	}, nil
}
