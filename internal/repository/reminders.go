package repository

import (
	"context"
	"fmt"

	"github.com/ledgerbill/invoice-service/internal/billing"
)

// RecordReminderSent claims the (invoice, day offset) slot and reports
// whether this call claimed it. The unique constraint on the table is
// what makes reminder delivery once-only, no matter how often the cycle
// reruns for the same day.
func (r *Repository) RecordReminderSent(ctx context.Context, invoiceID int64, dayOffset int, tone billing.Tone) (bool, error) {
	query := `
		INSERT INTO billing.reminders_sent (invoice_id, day_offset, tone, sent_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (invoice_id, day_offset) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, invoiceID, dayOffset, tone)
	if err != nil {
		return false, fmt.Errorf("failed to record reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder insert: %w", err)
	}
	return n == 1, nil
}
