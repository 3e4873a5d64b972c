package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/models"
)

const invoiceColumns = `id, user_id, customer_id, customer_name, customer_email, number,
	currency, status, issue_date, due_date, subtotal, tax_percent, tax, late_fee,
	late_fee_capped, total, amount_paid, balance_due, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(s rowScanner) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var customerID sql.NullInt64
	err := s.Scan(&inv.ID, &inv.UserID, &customerID, &inv.CustomerName, &inv.CustomerEmail,
		&inv.Number, &inv.Currency, &inv.Status, &inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.TaxPercent, &inv.Tax, &inv.LateFee, &inv.LateFeeCapped,
		&inv.Total, &inv.AmountPaid, &inv.BalanceDue, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.CustomerID = customerID.Int64
	return inv, nil
}

// CreateInvoice inserts an invoice and its items in one transaction
func (r *Repository) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO billing.invoices (user_id, customer_id, customer_name, customer_email,
			number, currency, status, issue_date, due_date, subtotal, tax_percent, tax,
			late_fee, late_fee_capped, total, amount_paid, balance_due, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		inv.UserID, nullInt64(inv.CustomerID), inv.CustomerName, inv.CustomerEmail,
		inv.Number, inv.Currency, inv.Status, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.TaxPercent, inv.Tax, inv.LateFee, inv.LateFeeCapped,
		inv.Total, inv.AmountPaid, inv.BalanceDue, inv.Notes).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	itemQuery := `
		INSERT INTO billing.invoice_items (invoice_id, description, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		if err := tx.QueryRowContext(ctx, itemQuery,
			item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.Amount).
			Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to create invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invoice: %w", err)
	}
	return nil
}

// FindInvoiceByID retrieves an invoice with its items. Ownership is the
// caller's concern; the worker loads invoices across all users.
func (r *Repository) FindInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM billing.invoices WHERE id = $1`
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	items, err := r.listInvoiceItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *Repository) listInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, description, quantity, unit_price, amount
		FROM billing.invoice_items
		WHERE invoice_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w", err)
	}
	return items, nil
}

// ListInvoices retrieves a user's invoices, optionally filtered by status,
// newest first. Items are not loaded for listings.
func (r *Repository) ListInvoices(ctx context.Context, userID int64, status models.InvoiceStatus) ([]models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM billing.invoices WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListOpenInvoices retrieves every invoice still awaiting money, across
// all users. The daily cycle walks this set.
func (r *Repository) ListOpenInvoices(ctx context.Context) ([]models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM billing.invoices
		WHERE status IN ('sent', 'partial', 'overdue')
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListOpenInvoicesByUser retrieves a user's open invoices for reporting
func (r *Repository) ListOpenInvoicesByUser(ctx context.Context, userID int64) ([]models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM billing.invoices
		WHERE user_id = $1 AND status IN ('sent', 'partial', 'overdue')
		ORDER BY due_date`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func collectInvoices(rows *sql.Rows) ([]models.Invoice, error) {
	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

// UpdateInvoiceStatus sets an invoice's status
func (r *Repository) UpdateInvoiceStatus(ctx context.Context, id int64, status models.InvoiceStatus) error {
	query := `
		UPDATE billing.invoices
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// ApplyLateFee persists a recomputed late fee and writes the fee event row
// in the same transaction
func (r *Repository) ApplyLateFee(ctx context.Context, invoiceID int64, fee decimal.Decimal, capped bool, total, balanceDue decimal.Decimal, daysOverdue int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE billing.invoices
		SET late_fee = $2, late_fee_capped = $3, total = $4, balance_due = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, invoiceID, fee, capped, total, balanceDue); err != nil {
		return fmt.Errorf("failed to apply late fee: %w", err)
	}

	eventQuery := `
		INSERT INTO billing.late_fee_events (invoice_id, days_overdue, fee, capped, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)`
	if _, err := tx.ExecContext(ctx, eventQuery, invoiceID, daysOverdue, fee, capped); err != nil {
		return fmt.Errorf("failed to record late fee event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit late fee: %w", err)
	}
	return nil
}

// MarkOverdueInvoices flips unpaid invoices past their due date to overdue
// and returns how many changed. Running it twice on the same day is a no-op.
func (r *Repository) MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE billing.invoices
		SET status = 'overdue', updated_at = CURRENT_TIMESTAMP
		WHERE due_date < $1::date AND status IN ('sent', 'partial')`
	res, err := r.db.ExecContext(ctx, query, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue invoices: %w", err)
	}
	return n, nil
}
