package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerbill/invoice-service/internal/billing"
)

// GetLateFeePolicy retrieves a user's saved late-fee policy, or
// ErrPolicyNotFound when the user never saved one.
func (r *Repository) GetLateFeePolicy(ctx context.Context, userID int64) (*billing.LateFeePolicy, error) {
	policy := &billing.LateFeePolicy{}
	query := `
		SELECT enabled, grace_period_days, fee_type, fee_amount, max_fee_percent, compound_daily
		FROM billing.late_fee_policies
		WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&policy.Enabled, &policy.GracePeriodDays, &policy.FeeType,
			&policy.FeeAmount, &policy.MaxFeePercent, &policy.CompoundDaily)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get late fee policy: %w", err)
	}
	return policy, nil
}

// SaveLateFeePolicy upserts a user's late-fee policy
func (r *Repository) SaveLateFeePolicy(ctx context.Context, userID int64, policy billing.LateFeePolicy) error {
	query := `
		INSERT INTO billing.late_fee_policies
			(user_id, enabled, grace_period_days, fee_type, fee_amount, max_fee_percent, compound_daily, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			grace_period_days = EXCLUDED.grace_period_days,
			fee_type = EXCLUDED.fee_type,
			fee_amount = EXCLUDED.fee_amount,
			max_fee_percent = EXCLUDED.max_fee_percent,
			compound_daily = EXCLUDED.compound_daily,
			updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.ExecContext(ctx, query, userID, policy.Enabled, policy.GracePeriodDays,
		policy.FeeType, policy.FeeAmount, policy.MaxFeePercent, policy.CompoundDaily)
	if err != nil {
		return fmt.Errorf("failed to save late fee policy: %w", err)
	}
	return nil
}

// GetReminderLadder retrieves a user's saved reminder ladder ordered by
// offset. An empty ladder means the user never saved one.
func (r *Repository) GetReminderLadder(ctx context.Context, userID int64) (billing.Ladder, error) {
	query := `
		SELECT day_offset, tone
		FROM billing.reminder_rungs
		WHERE user_id = $1
		ORDER BY day_offset`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder ladder: %w", err)
	}
	defer rows.Close()

	var ladder billing.Ladder
	for rows.Next() {
		var rung billing.Rung
		if err := rows.Scan(&rung.DayOffset, &rung.Tone); err != nil {
			return nil, fmt.Errorf("failed to scan reminder rung: %w", err)
		}
		ladder = append(ladder, rung)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder rungs: %w", err)
	}
	return ladder, nil
}

// SaveReminderLadder replaces a user's reminder ladder atomically
func (r *Repository) SaveReminderLadder(ctx context.Context, userID int64, ladder billing.Ladder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM billing.reminder_rungs WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear reminder ladder: %w", err)
	}

	query := `
		INSERT INTO billing.reminder_rungs (user_id, day_offset, tone)
		VALUES ($1, $2, $3)`
	for _, rung := range ladder {
		if _, err := tx.ExecContext(ctx, query, userID, rung.DayOffset, rung.Tone); err != nil {
			return fmt.Errorf("failed to save reminder rung: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reminder ladder: %w", err)
	}
	return nil
}
