package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerbill/invoice-service/internal/models"
)

// CustomerInput describes a new billing contact
type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// CreateCustomer creates a billing contact for the authenticated user
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if input.Email != "" && !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: customer email is malformed", ErrInvalidInput)
	}

	customer := &models.Customer{
		UserID:  userID,
		Name:    input.Name,
		Email:   input.Email,
		Company: input.Company,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	s.log.Infof("Customer %q created for user %d", customer.Name, userID)
	return customer, nil
}

// ListCustomers retrieves the user's billing contacts
func (s *Service) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, userID)
}
