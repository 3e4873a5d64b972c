package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/repository"
)

// InvoiceItemInput is one requested invoice line
type InvoiceItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceInput carries everything a new invoice needs. Zero dates
// mean "today" and "issue date plus the default payment terms".
type CreateInvoiceInput struct {
	CustomerID    int64              `json:"customer_id"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	Currency      string             `json:"currency"`
	TaxPercent    decimal.Decimal    `json:"tax_percent"`
	IssueDate     time.Time          `json:"issue_date"`
	DueDate       time.Time          `json:"due_date"`
	NetDays       int                `json:"net_days"`
	Notes         string             `json:"notes"`
	Draft         bool               `json:"draft"`
	Items         []InvoiceItemInput `json:"items"`
}

// CreateInvoice validates the input, computes the money columns at the
// currency's precision, allocates the next invoice number and stores the
// invoice. Non-draft invoices get an issued notice queued.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	if input.TaxPercent.IsNegative() {
		return nil, fmt.Errorf("%w: tax percent must not be negative", ErrInvalidInput)
	}
	currency := strings.ToUpper(input.Currency)
	if _, err := billing.CurrencyPrecision(currency); err != nil {
		return nil, err
	}

	customerName := input.CustomerName
	customerEmail := input.CustomerEmail
	if input.CustomerID != 0 {
		customer, err := s.repo.FindCustomerByID(ctx, input.CustomerID, userID)
		if err != nil {
			return nil, err
		}
		customerName = customer.Name
		customerEmail = customer.Email
	}
	if customerName == "" {
		return nil, fmt.Errorf("%w: a customer or customer name is required", ErrInvalidInput)
	}

	issueDate := input.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	dueDate := input.DueDate
	if dueDate.IsZero() {
		netDays := input.NetDays
		if netDays <= 0 {
			netDays = s.defaults.NetDays
		}
		dueDate = issueDate.AddDate(0, 0, netDays)
	}
	if billing.DayDifference(dueDate, issueDate) < 0 {
		return nil, fmt.Errorf("%w: due date precedes issue date", ErrInvalidInput)
	}

	subtotal := decimal.Zero
	items := make([]models.InvoiceItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Description == "" {
			return nil, fmt.Errorf("%w: item description is required", ErrInvalidInput)
		}
		if !in.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrInvalidInput)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item unit price must not be negative", ErrInvalidInput)
		}
		amount, err := billing.RoundToCurrencyPrecision(in.Quantity.Mul(in.UnitPrice), currency)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(amount)
		items = append(items, models.InvoiceItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
		})
	}

	tax, err := billing.RoundToCurrencyPrecision(subtotal.Mul(input.TaxPercent).Div(decimal.NewFromInt(100)), currency)
	if err != nil {
		return nil, err
	}
	total := subtotal.Add(tax)

	number, err := s.repo.NextInvoiceNumber(ctx, userID, issueDate.Year(), s.defaults.InvoicePrefix)
	if err != nil {
		return nil, err
	}

	status := models.StatusSent
	if input.Draft {
		status = models.StatusDraft
	}

	inv := &models.Invoice{
		UserID:        userID,
		CustomerID:    input.CustomerID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Number:        number,
		Currency:      currency,
		Status:        status,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Subtotal:      subtotal,
		TaxPercent:    input.TaxPercent,
		Tax:           tax,
		LateFee:       decimal.Zero,
		Total:         total,
		AmountPaid:    decimal.Zero,
		BalanceDue:    total,
		Notes:         input.Notes,
		Items:         items,
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	s.log.Infof("Invoice %s created for user %d (%s %s)", inv.Number, userID, inv.Total, inv.Currency)

	if status == models.StatusSent && customerEmail != "" {
		if err := s.enqueuer.EnqueueInvoiceIssued(inv.ID); err != nil {
			s.log.Warnf("Failed to enqueue issued notice for invoice %d: %v", inv.ID, err)
		}
	}

	return inv, nil
}

// GetInvoice retrieves one of the user's invoices with its payments
func (s *Service) GetInvoice(ctx context.Context, id int64) (*models.Invoice, []models.Payment, error) {
	inv, err := s.ownedInvoice(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return inv, payments, nil
}

// ListInvoices retrieves the user's invoices, optionally filtered by status
func (s *Service) ListInvoices(ctx context.Context, status string) ([]models.Invoice, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter := models.InvoiceStatus(status)
	if status != "" && !filter.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.ListInvoices(ctx, userID, filter)
}

// PaymentInput describes money received against an invoice
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
}

// RecordPayment applies a payment to an open invoice. Overpayment is
// rejected rather than credited.
func (s *Service) RecordPayment(ctx context.Context, invoiceID int64, input PaymentInput) (*models.Payment, error) {
	inv, err := s.ownedInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.Open() {
		return nil, ErrInvoiceNotPayable
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}

	amount, err := billing.RoundToCurrencyPrecision(input.Amount, inv.Currency)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(inv.BalanceDue) {
		return nil, ErrPaymentExceedsBalance
	}

	method := input.Method
	if method == "" {
		method = "manual"
	}
	reference := input.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	amountPaid := inv.AmountPaid.Add(amount)
	balanceDue := inv.Total.Sub(amountPaid)
	status := models.StatusPartial
	switch {
	case balanceDue.IsZero():
		status = models.StatusPaid
	case inv.Status == models.StatusOverdue:
		// Partially paying an overdue invoice does not make it current.
		status = models.StatusOverdue
	}

	payment := &models.Payment{
		InvoiceID: inv.ID,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		PaidAt:    paidAt,
	}
	if err := s.repo.RecordPayment(ctx, payment, amountPaid, balanceDue, status); err != nil {
		return nil, err
	}

	s.log.Infof("Payment of %s %s recorded against invoice %s (status %s)",
		amount, inv.Currency, inv.Number, status)
	return payment, nil
}

// VoidInvoice cancels an invoice nothing has been paid against
func (s *Service) VoidInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := s.ownedInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.StatusVoid {
		return inv, nil
	}
	if inv.AmountPaid.IsPositive() {
		return nil, ErrVoidAfterPayment
	}
	if err := s.repo.UpdateInvoiceStatus(ctx, id, models.StatusVoid); err != nil {
		return nil, err
	}
	inv.Status = models.StatusVoid
	s.log.Infof("Invoice %s voided", inv.Number)
	return inv, nil
}

// Assessment is a dry run of the billing cycle against one invoice: the
// late fee that would stand and the reminder that would fire on a date.
// Nothing is persisted or enqueued.
type Assessment struct {
	AsOf     time.Time              `json:"as_of"`
	LateFee  *billing.LateFeeResult `json:"late_fee,omitempty"`
	Reminder *billing.Rung          `json:"reminder,omitempty"`
}

// AssessInvoice evaluates the user's policy and ladder against an invoice
// as of an arbitrary date
func (s *Service) AssessInvoice(ctx context.Context, id int64, asOf time.Time) (*Assessment, error) {
	inv, err := s.ownedInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	policy, err := s.policyFor(ctx, inv.UserID)
	if err != nil {
		return nil, err
	}
	ladder, err := s.ladderFor(ctx, inv.UserID)
	if err != nil {
		return nil, err
	}

	assessment := &Assessment{AsOf: asOf}

	res, err := billing.ComputeLateFee(inv.BaseTotal(), inv.DueDate, asOf, policy)
	if err != nil {
		return nil, err
	}
	if res != nil {
		if res.Fee, err = billing.RoundToCurrencyPrecision(res.Fee, inv.Currency); err != nil {
			return nil, err
		}
		res.NewTotal = inv.BaseTotal().Add(res.Fee)
		assessment.LateFee = res
	}

	assessment.Reminder = billing.FindDueReminder(inv.DueDate, asOf, ladder)
	return assessment, nil
}

// ownedInvoice loads an invoice and hides other users' invoices behind
// not-found
func (s *Service) ownedInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.FindInvoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, repository.ErrInvoiceNotFound
	}
	return inv, nil
}
