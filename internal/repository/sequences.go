package repository

import (
	"context"
	"fmt"
)

// NextInvoiceNumber allocates the next number in the user's per-year
// sequence and formats it as PREFIX-YYYY-NNNNNN. The upsert increments
// under the row lock, so concurrent calls never hand out the same number.
func (r *Repository) NextInvoiceNumber(ctx context.Context, userID int64, year int, prefix string) (string, error) {
	query := `
		INSERT INTO billing.invoice_sequences (user_id, year, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, year) DO UPDATE SET counter = billing.invoice_sequences.counter + 1
		RETURNING counter`
	var counter int64
	if err := r.db.QueryRowContext(ctx, query, userID, year).Scan(&counter); err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, counter), nil
}
