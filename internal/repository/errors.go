package repository

import "errors"

// Sentinel errors returned in place of sql.ErrNoRows so callers can
// branch without importing database/sql.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrProfileNotFound  = errors.New("recurring profile not found")
	ErrPolicyNotFound   = errors.New("late fee policy not found")
)
