package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerbill/invoice-service/internal/models"
)

// CreateCustomer creates a new customer in the database
func (r *Repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO billing.customers (user_id, name, email, company, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, customer.UserID, customer.Name, customer.Email, customer.Company).
		Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// FindCustomerByID retrieves one of the user's customers
func (r *Repository) FindCustomerByID(ctx context.Context, id, userID int64) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `
		SELECT id, user_id, name, email, company, created_at, updated_at
		FROM billing.customers
		WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&customer.ID, &customer.UserID, &customer.Name, &customer.Email,
			&customer.Company, &customer.CreatedAt, &customer.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return customer, nil
}

// ListCustomers retrieves all customers belonging to a user
func (r *Repository) ListCustomers(ctx context.Context, userID int64) ([]models.Customer, error) {
	query := `
		SELECT id, user_id, name, email, company, created_at, updated_at
		FROM billing.customers
		WHERE user_id = $1
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Company, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, nil
}
