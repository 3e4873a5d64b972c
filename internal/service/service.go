package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/config"
	"github.com/ledgerbill/invoice-service/internal/integrations/ecb"
	"github.com/ledgerbill/invoice-service/internal/models"
)

// Store is the persistence surface the service consumes. The Postgres
// repository implements it; tests substitute a fake.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	FindCustomerByID(ctx context.Context, id, userID int64) (*models.Customer, error)
	ListCustomers(ctx context.Context, userID int64) ([]models.Customer, error)

	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	FindInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userID int64, status models.InvoiceStatus) ([]models.Invoice, error)
	ListOpenInvoices(ctx context.Context) ([]models.Invoice, error)
	ListOpenInvoicesByUser(ctx context.Context, userID int64) ([]models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status models.InvoiceStatus) error
	ApplyLateFee(ctx context.Context, invoiceID int64, fee decimal.Decimal, capped bool, total, balanceDue decimal.Decimal, daysOverdue int) error
	MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error)
	NextInvoiceNumber(ctx context.Context, userID int64, year int, prefix string) (string, error)

	RecordPayment(ctx context.Context, payment *models.Payment, amountPaid, balanceDue decimal.Decimal, status models.InvoiceStatus) error
	ListPayments(ctx context.Context, invoiceID int64) ([]models.Payment, error)
	SumPaymentsByUser(ctx context.Context, userID int64, currency string) (decimal.Decimal, error)

	GetLateFeePolicy(ctx context.Context, userID int64) (*billing.LateFeePolicy, error)
	SaveLateFeePolicy(ctx context.Context, userID int64, policy billing.LateFeePolicy) error
	GetReminderLadder(ctx context.Context, userID int64) (billing.Ladder, error)
	SaveReminderLadder(ctx context.Context, userID int64, ladder billing.Ladder) error
	RecordReminderSent(ctx context.Context, invoiceID int64, dayOffset int, tone billing.Tone) (bool, error)

	CreateRecurringProfile(ctx context.Context, profile *models.RecurringProfile) error
	ListRecurringProfiles(ctx context.Context, userID int64) ([]models.RecurringProfile, error)
	ListDueRecurringProfiles(ctx context.Context, asOf time.Time) ([]models.RecurringProfile, error)
	AdvanceRecurringProfile(ctx context.Context, id int64, nextRun time.Time) error
	DeactivateRecurringProfile(ctx context.Context, id, userID int64) error
}

// Enqueuer hands email work to the task queue
type Enqueuer interface {
	EnqueueReminder(invoiceID int64, dayOffset int, tone billing.Tone) error
	EnqueueLateFeeNotice(invoiceID int64) error
	EnqueueInvoiceIssued(invoiceID int64) error
}

// RateSource fetches a day's EUR reference table
type RateSource interface {
	FetchDailyRates(ctx context.Context) (*ecb.Rates, error)
}

// Service handles business logic
type Service struct {
	repo     Store
	enqueuer Enqueuer
	rates    RateSource
	cache    Cache
	defaults *config.Defaults
	log      *logrus.Logger
	config   *config.Config
}

// Cache mirrors cache.Cache without importing it, keeping the service
// mockable from a flat fake in tests.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// NewService initializes a new service
func NewService(repo Store, enqueuer Enqueuer, rates RateSource, cache Cache, defaults *config.Defaults, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		enqueuer: enqueuer,
		rates:    rates,
		cache:    cache,
		defaults: defaults,
		log:      log,
		config:   cfg,
	}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// userIDFromContext extracts the authenticated user set by the middleware
func userIDFromContext(ctx context.Context) (int64, error) {
	userIDStr, ok := ctx.Value("userID").(string)
	if !ok || userIDStr == "" {
		return 0, errors.New("user ID not found in context")
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %w", err)
	}
	return userID, nil
}
