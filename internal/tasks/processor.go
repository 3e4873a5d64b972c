package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/repository"
)

// InvoiceStore is the slice of persistence the processor needs
type InvoiceStore interface {
	FindInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error)
}

// EmailSender is the slice of the SMTP layer the processor needs
type EmailSender interface {
	SendReminder(to, customerName, invoiceNumber string, dueDate time.Time, balance decimal.Decimal, currency string, tone billing.Tone, dayOffset int) error
	SendLateFeeNotice(to, customerName, invoiceNumber string, fee, newTotal decimal.Decimal, currency string, capped bool, daysOverdue int) error
	SendInvoiceIssued(to, customerName, invoiceNumber string, total decimal.Decimal, currency string, dueDate time.Time) error
}

// Processor executes queued email tasks. Permanent failures are wrapped
// with asynq.SkipRetry; anything else is returned plain so asynq retries
// it with backoff.
type Processor struct {
	store  InvoiceStore
	sender EmailSender
	log    *logrus.Logger
}

// NewProcessor creates a task processor
func NewProcessor(store InvoiceStore, sender EmailSender, log *logrus.Logger) *Processor {
	return &Processor{store: store, sender: sender, log: log}
}

// HandleReminderEmail delivers one reminder rung
func (p *Processor) HandleReminderEmail(ctx context.Context, t *asynq.Task) error {
	var payload ReminderEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	inv, err := p.loadInvoice(ctx, payload.InvoiceID)
	if err != nil {
		return err
	}
	// Money may have landed between the cycle and delivery; a reminder
	// for a settled invoice only annoys the customer.
	if inv == nil || !inv.Open() {
		return nil
	}

	return p.sender.SendReminder(inv.CustomerEmail, inv.CustomerName, inv.Number,
		inv.DueDate, inv.BalanceDue, inv.Currency, payload.Tone, payload.DayOffset)
}

// HandleLateFeeEmail delivers a late-fee notice
func (p *Processor) HandleLateFeeEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	inv, err := p.loadInvoice(ctx, payload.InvoiceID)
	if err != nil {
		return err
	}
	if inv == nil || !inv.Open() {
		return nil
	}

	daysOverdue := billing.DayDifference(time.Now(), inv.DueDate)
	return p.sender.SendLateFeeNotice(inv.CustomerEmail, inv.CustomerName, inv.Number,
		inv.LateFee, inv.Total, inv.Currency, inv.LateFeeCapped, daysOverdue)
}

// HandleInvoiceIssued delivers a new-invoice notice
func (p *Processor) HandleInvoiceIssued(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	inv, err := p.loadInvoice(ctx, payload.InvoiceID)
	if err != nil {
		return err
	}
	if inv == nil || inv.Status == models.StatusVoid {
		return nil
	}

	return p.sender.SendInvoiceIssued(inv.CustomerEmail, inv.CustomerName, inv.Number,
		inv.Total, inv.Currency, inv.DueDate)
}

// loadInvoice fetches the invoice, converting a vanished invoice into a
// skip instead of an error so the queue does not retry it forever.
func (p *Processor) loadInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := p.store.FindInvoiceByID(ctx, id)
	if errors.Is(err, repository.ErrInvoiceNotFound) {
		p.log.Warnf("Invoice %d vanished before email delivery, dropping task", id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if inv.CustomerEmail == "" {
		p.log.Warnf("Invoice %d has no customer email, dropping task", id)
		return nil, nil
	}
	return inv, nil
}
