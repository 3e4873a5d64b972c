package service

import "errors"

// Domain errors surfaced to handlers. Handlers translate them to HTTP
// statuses; nothing here carries transport concerns.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrPaymentExceedsBalance = errors.New("payment exceeds balance due")
	ErrInvoiceNotPayable     = errors.New("invoice is not open for payment")
	ErrVoidAfterPayment      = errors.New("invoice with recorded payments cannot be voided")
)
