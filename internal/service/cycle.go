package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
)

// RunBillingCycle executes the daily pass as of the given date: generate
// invoices from due recurring profiles, recompute late fees from scratch,
// fire reminder rungs that land on the day, and flip unpaid invoices past
// due to overdue.
//
// Every step is idempotent for a given asOf: fees are an absolute function
// of the date, reminders are guarded by a unique constraint, and the
// overdue flip only touches rows still in the wrong status. Per-invoice
// failures are counted and skipped so one bad row never stalls the rest.
func (s *Service) RunBillingCycle(ctx context.Context, asOf time.Time) *models.CycleStats {
	stats := &models.CycleStats{AsOf: asOf}
	s.log.Infof("Billing cycle started as of %s", asOf.Format("2006-01-02"))

	s.generateRecurring(ctx, asOf, stats)
	s.processOpenInvoices(ctx, asOf, stats)

	marked, err := s.repo.MarkOverdueInvoices(ctx, asOf)
	if err != nil {
		s.log.Errorf("Failed to mark overdue invoices: %v", err)
		stats.Errors++
	} else {
		stats.MarkedOverdue = int(marked)
	}

	s.log.Infof("Billing cycle finished: %d invoices generated, %d fees applied, %d reminders sent, %d marked overdue, %d errors",
		stats.InvoicesGenerated, stats.FeesApplied, stats.RemindersSent, stats.MarkedOverdue, stats.Errors)
	return stats
}

func (s *Service) generateRecurring(ctx context.Context, asOf time.Time, stats *models.CycleStats) {
	profiles, err := s.repo.ListDueRecurringProfiles(ctx, asOf)
	if err != nil {
		s.log.Errorf("Failed to list due recurring profiles: %v", err)
		stats.Errors++
		return
	}

	for i := range profiles {
		generated, err := s.generateFromProfile(ctx, &profiles[i])
		if err != nil {
			s.log.Errorf("Recurring profile %d: %v", profiles[i].ID, err)
			stats.Errors++
			continue
		}
		if generated {
			stats.InvoicesGenerated++
		}
	}
}

// generateFromProfile bills one due period of a profile. A profile behind
// by several periods catches up one invoice per cycle run rather than
// flooding the customer in a single day.
func (s *Service) generateFromProfile(ctx context.Context, profile *models.RecurringProfile) (bool, error) {
	if profile.EndDate != nil && billing.DayDifference(profile.NextRun, *profile.EndDate) > 0 {
		if err := s.repo.DeactivateRecurringProfile(ctx, profile.ID, 0); err != nil {
			return false, err
		}
		s.log.Infof("Recurring profile %d expired and was deactivated", profile.ID)
		return false, nil
	}

	customer, err := s.repo.FindCustomerByID(ctx, profile.CustomerID, profile.UserID)
	if err != nil {
		return false, err
	}

	amount, err := billing.RoundToCurrencyPrecision(profile.Amount, profile.Currency)
	if err != nil {
		return false, err
	}
	tax, err := billing.RoundToCurrencyPrecision(
		amount.Mul(profile.TaxPercent).Div(decimal.NewFromInt(100)), profile.Currency)
	if err != nil {
		return false, err
	}
	total := amount.Add(tax)

	issueDate := profile.NextRun
	dueDate := issueDate.AddDate(0, 0, s.defaults.NetDays)

	number, err := s.repo.NextInvoiceNumber(ctx, profile.UserID, issueDate.Year(), s.defaults.InvoicePrefix)
	if err != nil {
		return false, err
	}

	inv := &models.Invoice{
		UserID:        profile.UserID,
		CustomerID:    profile.CustomerID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		Number:        number,
		Currency:      profile.Currency,
		Status:        models.StatusSent,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Subtotal:      amount,
		TaxPercent:    profile.TaxPercent,
		Tax:           tax,
		LateFee:       decimal.Zero,
		Total:         total,
		AmountPaid:    decimal.Zero,
		BalanceDue:    total,
		Items: []models.InvoiceItem{{
			Description: profile.Description,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   amount,
			Amount:      amount,
		}},
	}
	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return false, err
	}
	s.log.Infof("Invoice %s generated from recurring profile %d", inv.Number, profile.ID)

	if customer.Email != "" {
		if err := s.enqueuer.EnqueueInvoiceIssued(inv.ID); err != nil {
			s.log.Warnf("Failed to enqueue issued notice for invoice %d: %v", inv.ID, err)
		}
	}

	if err := s.repo.AdvanceRecurringProfile(ctx, profile.ID, profile.Frequency.Next(profile.NextRun)); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Service) processOpenInvoices(ctx context.Context, asOf time.Time, stats *models.CycleStats) {
	invoices, err := s.repo.ListOpenInvoices(ctx)
	if err != nil {
		s.log.Errorf("Failed to list open invoices: %v", err)
		stats.Errors++
		return
	}

	// Policies and ladders are per user; resolve each owner once per run.
	policies := make(map[int64]billing.LateFeePolicy)
	ladders := make(map[int64]billing.Ladder)

	for i := range invoices {
		inv := &invoices[i]

		policy, ok := policies[inv.UserID]
		if !ok {
			if policy, err = s.policyFor(ctx, inv.UserID); err != nil {
				s.log.Errorf("Policy for user %d: %v", inv.UserID, err)
				stats.Errors++
				continue
			}
			policies[inv.UserID] = policy
		}
		applied, err := s.applyLateFee(ctx, inv, asOf, policy)
		if err != nil {
			s.log.Errorf("Late fee for invoice %d: %v", inv.ID, err)
			stats.Errors++
		} else if applied {
			stats.FeesApplied++
		}

		ladder, ok := ladders[inv.UserID]
		if !ok {
			if ladder, err = s.ladderFor(ctx, inv.UserID); err != nil {
				s.log.Errorf("Ladder for user %d: %v", inv.UserID, err)
				stats.Errors++
				continue
			}
			ladders[inv.UserID] = ladder
		}
		sent, err := s.sendReminder(ctx, inv, asOf, ladder)
		if err != nil {
			s.log.Errorf("Reminder for invoice %d: %v", inv.ID, err)
			stats.Errors++
		} else if sent {
			stats.RemindersSent++
		}
	}
}

// applyLateFee recomputes the invoice's fee from scratch and persists it
// only when the stored value differs. The notice email goes out on the
// transition from no fee to some fee, not on every growth tick.
func (s *Service) applyLateFee(ctx context.Context, inv *models.Invoice, asOf time.Time, policy billing.LateFeePolicy) (bool, error) {
	res, err := billing.ComputeLateFee(inv.BaseTotal(), inv.DueDate, asOf, policy)
	if err != nil {
		return false, err
	}

	fee := decimal.Zero
	capped := false
	daysOverdue := 0
	if res != nil {
		if fee, err = billing.RoundToCurrencyPrecision(res.Fee, inv.Currency); err != nil {
			return false, err
		}
		capped = res.Capped
		daysOverdue = res.DaysOverdue
	}

	if fee.Equal(inv.LateFee) && capped == inv.LateFeeCapped {
		return false, nil
	}

	newTotal := inv.BaseTotal().Add(fee)
	balanceDue := newTotal.Sub(inv.AmountPaid)
	if err := s.repo.ApplyLateFee(ctx, inv.ID, fee, capped, newTotal, balanceDue, daysOverdue); err != nil {
		return false, err
	}

	firstFee := inv.LateFee.IsZero() && fee.IsPositive()
	inv.LateFee = fee
	inv.LateFeeCapped = capped
	inv.Total = newTotal
	inv.BalanceDue = balanceDue

	if firstFee && inv.CustomerEmail != "" {
		if err := s.enqueuer.EnqueueLateFeeNotice(inv.ID); err != nil {
			s.log.Warnf("Failed to enqueue late fee notice for invoice %d: %v", inv.ID, err)
		}
	}
	return true, nil
}

// sendReminder fires the rung landing on asOf, if any. The idempotency
// row is claimed before enqueueing; a rung claimed but not enqueued is
// logged loudly since it will not fire again.
func (s *Service) sendReminder(ctx context.Context, inv *models.Invoice, asOf time.Time, ladder billing.Ladder) (bool, error) {
	rung := billing.FindDueReminder(inv.DueDate, asOf, ladder)
	if rung == nil {
		return false, nil
	}
	if inv.CustomerEmail == "" {
		return false, nil
	}

	fresh, err := s.repo.RecordReminderSent(ctx, inv.ID, rung.DayOffset, rung.Tone)
	if err != nil {
		return false, err
	}
	if !fresh {
		return false, nil
	}

	if err := s.enqueuer.EnqueueReminder(inv.ID, rung.DayOffset, rung.Tone); err != nil {
		s.log.Errorf("Reminder for invoice %d claimed its slot but failed to enqueue: %v", inv.ID, err)
		return false, err
	}
	return true, nil
}
