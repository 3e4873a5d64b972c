package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgingBucket represents one age band of open receivables
type AgingBucket struct {
	Label       string          `json:"label"` // "current", "1-30", "31-60", "61-90", "90+"
	Count       int             `json:"count"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// AgingReport represents accounts receivable grouped by days overdue
type AgingReport struct {
	AsOf        time.Time       `json:"as_of"`
	Currency    string          `json:"currency"`
	Buckets     []AgingBucket   `json:"buckets"`
	Outstanding decimal.Decimal `json:"outstanding"` // sum over all buckets
}

// ReceivablesSummary represents the user's overall collection position
type ReceivablesSummary struct {
	AsOf         time.Time       `json:"as_of"`
	Currency     string          `json:"currency"`
	OpenInvoices int             `json:"open_invoices"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	Overdue      decimal.Decimal `json:"overdue"`
	Collected    decimal.Decimal `json:"collected"`
}
