package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks an invoice through its lifecycle
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "draft"
	StatusSent    InvoiceStatus = "sent"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
	StatusVoid    InvoiceStatus = "void"
)

// Valid reports whether s is one of the known statuses
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPartial, StatusPaid, StatusOverdue, StatusVoid:
		return true
	}
	return false
}

// Invoice represents an invoice in the system. Customer fields are
// denormalized onto the invoice so a later customer edit never rewrites
// what was billed.
type Invoice struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	CustomerID    int64           `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Number        string          `json:"number"`
	Currency      string          `json:"currency"`
	Status        InvoiceStatus   `json:"status"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxPercent    decimal.Decimal `json:"tax_percent"`
	Tax           decimal.Decimal `json:"tax"`
	LateFee       decimal.Decimal `json:"late_fee"`
	LateFeeCapped bool            `json:"late_fee_capped"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []InvoiceItem   `json:"items,omitempty"`
}

// InvoiceItem represents one line of an invoice
type InvoiceItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// Open reports whether the invoice still awaits money: sent, partially
// paid, or overdue. Draft, paid and void invoices are not billed against.
func (i *Invoice) Open() bool {
	switch i.Status {
	case StatusSent, StatusPartial, StatusOverdue:
		return true
	}
	return false
}

// BaseTotal is the invoice total before any late fee: subtotal plus tax.
func (i *Invoice) BaseTotal() decimal.Decimal {
	return i.Subtotal.Add(i.Tax)
}
