// Package tasks carries invoice emails through Redis so SMTP hiccups are
// retried by the asynq worker instead of stalling the billing cycle.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ledgerbill/invoice-service/internal/billing"
)

const (
	TypeReminderEmail = "email:reminder"
	TypeLateFeeEmail  = "email:latefee"
	TypeIssuedEmail   = "email:issued"
)

// ReminderEmailPayload identifies the invoice and the ladder rung that fired
type ReminderEmailPayload struct {
	InvoiceID int64        `json:"invoice_id"`
	DayOffset int          `json:"day_offset"`
	Tone      billing.Tone `json:"tone"`
}

// InvoiceEmailPayload identifies the invoice for single-invoice notices
type InvoiceEmailPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// NewReminderEmailTask creates a task to deliver one reminder rung
func NewReminderEmailTask(invoiceID int64, dayOffset int, tone billing.Tone) (*asynq.Task, error) {
	payload, err := json.Marshal(ReminderEmailPayload{InvoiceID: invoiceID, DayOffset: dayOffset, Tone: tone})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reminder payload: %w", err)
	}
	return asynq.NewTask(TypeReminderEmail, payload), nil
}

// NewLateFeeEmailTask creates a task to deliver a late-fee notice
func NewLateFeeEmailTask(invoiceID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(InvoiceEmailPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal late fee payload: %w", err)
	}
	return asynq.NewTask(TypeLateFeeEmail, payload), nil
}

// NewInvoiceIssuedTask creates a task to deliver a new-invoice notice
func NewInvoiceIssuedTask(invoiceID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(InvoiceEmailPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issued payload: %w", err)
	}
	return asynq.NewTask(TypeIssuedEmail, payload), nil
}
