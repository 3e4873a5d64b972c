package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/models"
)

// RecordPayment inserts a payment row and moves the invoice's paid
// amount, balance and status in the same transaction. The caller computes
// the new figures; this method only makes them durable together.
func (r *Repository) RecordPayment(ctx context.Context, payment *models.Payment, amountPaid, balanceDue decimal.Decimal, status models.InvoiceStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO billing.payments (invoice_id, amount, method, reference, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query,
		payment.InvoiceID, payment.Amount, payment.Method, payment.Reference, payment.PaidAt).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	update := `
		UPDATE billing.invoices
		SET amount_paid = $2, balance_due = $3, status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, payment.InvoiceID, amountPaid, balanceDue, status); err != nil {
		return fmt.Errorf("failed to update invoice balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// ListPayments retrieves payments recorded against an invoice
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	query := `
		SELECT id, invoice_id, amount, method, reference, paid_at, created_at
		FROM billing.payments
		WHERE invoice_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// SumPaymentsByUser totals everything a user has collected in a currency
func (r *Repository) SumPaymentsByUser(ctx context.Context, userID int64, currency string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM billing.payments p
		JOIN billing.invoices i ON i.id = p.invoice_id
		WHERE i.user_id = $1 AND i.currency = $2`
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, userID, currency).Scan(&total); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}
