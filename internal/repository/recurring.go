package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgerbill/invoice-service/internal/models"
)

// CreateRecurringProfile creates a new recurring billing profile
func (r *Repository) CreateRecurringProfile(ctx context.Context, profile *models.RecurringProfile) error {
	var endDate sql.NullTime
	if profile.EndDate != nil {
		endDate = sql.NullTime{Time: *profile.EndDate, Valid: true}
	}
	query := `
		INSERT INTO billing.recurring_profiles
			(user_id, customer_id, description, currency, amount, tax_percent,
			 frequency, next_run, end_date, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, active, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		profile.UserID, profile.CustomerID, profile.Description, profile.Currency,
		profile.Amount, profile.TaxPercent, profile.Frequency, profile.NextRun, endDate).
		Scan(&profile.ID, &profile.Active, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recurring profile: %w", err)
	}
	return nil
}

// ListRecurringProfiles retrieves all of a user's recurring profiles
func (r *Repository) ListRecurringProfiles(ctx context.Context, userID int64) ([]models.RecurringProfile, error) {
	query := `
		SELECT id, user_id, customer_id, description, currency, amount, tax_percent,
			frequency, next_run, end_date, active, created_at, updated_at
		FROM billing.recurring_profiles
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring profiles: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListDueRecurringProfiles retrieves every active profile whose next run
// is on or before asOf, across all users
func (r *Repository) ListDueRecurringProfiles(ctx context.Context, asOf time.Time) ([]models.RecurringProfile, error) {
	query := `
		SELECT id, user_id, customer_id, description, currency, amount, tax_percent,
			frequency, next_run, end_date, active, created_at, updated_at
		FROM billing.recurring_profiles
		WHERE active AND next_run <= $1::date
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due recurring profiles: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

func collectProfiles(rows *sql.Rows) ([]models.RecurringProfile, error) {
	var profiles []models.RecurringProfile
	for rows.Next() {
		var p models.RecurringProfile
		var endDate sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.CustomerID, &p.Description, &p.Currency,
			&p.Amount, &p.TaxPercent, &p.Frequency, &p.NextRun, &endDate,
			&p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring profile: %w", err)
		}
		if endDate.Valid {
			t := endDate.Time
			p.EndDate = &t
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring profiles: %w", err)
	}
	return profiles, nil
}

// AdvanceRecurringProfile moves a profile's next run forward after an
// invoice was generated from it
func (r *Repository) AdvanceRecurringProfile(ctx context.Context, id int64, nextRun time.Time) error {
	query := `
		UPDATE billing.recurring_profiles
		SET next_run = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, nextRun); err != nil {
		return fmt.Errorf("failed to advance recurring profile: %w", err)
	}
	return nil
}

// DeactivateRecurringProfile switches a profile off. When userID is zero
// the scope check is skipped; the cycle deactivates expired profiles for
// any user.
func (r *Repository) DeactivateRecurringProfile(ctx context.Context, id, userID int64) error {
	query := `
		UPDATE billing.recurring_profiles
		SET active = false, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND ($2 = 0 OR user_id = $2)`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate recurring profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
