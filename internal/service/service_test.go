package service

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/cache"
	"github.com/ledgerbill/invoice-service/internal/config"
	"github.com/ledgerbill/invoice-service/internal/integrations/ecb"
	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/repository"
)

// fakeStore is an in-memory Store so service tests never need Postgres.
// Mutating writes land in the maps the same way the SQL layer persists
// them, so a second read observes the first write.
type fakeStore struct {
	users     map[int64]*models.User
	customers map[int64]*models.Customer
	invoices  map[int64]*models.Invoice
	payments  map[int64][]models.Payment
	profiles  map[int64]*models.RecurringProfile
	policies  map[int64]billing.LateFeePolicy
	ladders   map[int64]billing.Ladder
	reminders map[string]bool
	sequences map[string]int

	nextID int64

	applyLateFeeCalls int
	applyLateFeeErr   map[int64]error
	lastDaysOverdue   int
	statusUpdates     int
	deactivated       []int64
	markOverdueErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:           make(map[int64]*models.User),
		customers:       make(map[int64]*models.Customer),
		invoices:        make(map[int64]*models.Invoice),
		payments:        make(map[int64][]models.Payment),
		profiles:        make(map[int64]*models.RecurringProfile),
		policies:        make(map[int64]billing.LateFeePolicy),
		ladders:         make(map[int64]billing.Ladder),
		reminders:       make(map[string]bool),
		sequences:       make(map[string]int),
		applyLateFeeErr: make(map[int64]error),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = f.id()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	customer.ID = f.id()
	f.customers[customer.ID] = customer
	return nil
}

func (f *fakeStore) FindCustomerByID(_ context.Context, id, userID int64) (*models.Customer, error) {
	c, ok := f.customers[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrCustomerNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) ListCustomers(_ context.Context, userID int64) ([]models.Customer, error) {
	var out []models.Customer
	for _, c := range f.customers {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	inv.ID = f.id()
	copied := *inv
	f.invoices[inv.ID] = &copied
	return nil
}

func (f *fakeStore) FindInvoiceByID(_ context.Context, id int64) (*models.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, repository.ErrInvoiceNotFound
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeStore) ListInvoices(_ context.Context, userID int64, status models.InvoiceStatus) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.UserID != userID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (f *fakeStore) ListOpenInvoices(_ context.Context) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.Open() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOpenInvoicesByUser(_ context.Context, userID int64) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID && inv.Open() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateInvoiceStatus(_ context.Context, id int64, status models.InvoiceStatus) error {
	inv, ok := f.invoices[id]
	if !ok {
		return repository.ErrInvoiceNotFound
	}
	inv.Status = status
	f.statusUpdates++
	return nil
}

func (f *fakeStore) ApplyLateFee(_ context.Context, invoiceID int64, fee decimal.Decimal, capped bool, total, balanceDue decimal.Decimal, daysOverdue int) error {
	f.applyLateFeeCalls++
	if err := f.applyLateFeeErr[invoiceID]; err != nil {
		return err
	}
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return repository.ErrInvoiceNotFound
	}
	inv.LateFee = fee
	inv.LateFeeCapped = capped
	inv.Total = total
	inv.BalanceDue = balanceDue
	f.lastDaysOverdue = daysOverdue
	return nil
}

func (f *fakeStore) MarkOverdueInvoices(_ context.Context, asOf time.Time) (int64, error) {
	if f.markOverdueErr != nil {
		return 0, f.markOverdueErr
	}
	var n int64
	for _, inv := range f.invoices {
		if inv.Status != models.StatusSent && inv.Status != models.StatusPartial {
			continue
		}
		if billing.DayDifference(asOf, inv.DueDate) > 0 {
			inv.Status = models.StatusOverdue
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) NextInvoiceNumber(_ context.Context, userID int64, year int, prefix string) (string, error) {
	key := fmt.Sprintf("%d-%d", userID, year)
	f.sequences[key]++
	return fmt.Sprintf("%s-%d-%06d", prefix, year, f.sequences[key]), nil
}

func (f *fakeStore) RecordPayment(_ context.Context, payment *models.Payment, amountPaid, balanceDue decimal.Decimal, status models.InvoiceStatus) error {
	inv, ok := f.invoices[payment.InvoiceID]
	if !ok {
		return repository.ErrInvoiceNotFound
	}
	payment.ID = f.id()
	f.payments[payment.InvoiceID] = append(f.payments[payment.InvoiceID], *payment)
	inv.AmountPaid = amountPaid
	inv.BalanceDue = balanceDue
	inv.Status = status
	return nil
}

func (f *fakeStore) ListPayments(_ context.Context, invoiceID int64) ([]models.Payment, error) {
	return f.payments[invoiceID], nil
}

func (f *fakeStore) SumPaymentsByUser(_ context.Context, userID int64, currency string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for invoiceID, list := range f.payments {
		inv, ok := f.invoices[invoiceID]
		if !ok || inv.UserID != userID || inv.Currency != currency {
			continue
		}
		for _, p := range list {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f *fakeStore) GetLateFeePolicy(_ context.Context, userID int64) (*billing.LateFeePolicy, error) {
	policy, ok := f.policies[userID]
	if !ok {
		return nil, repository.ErrPolicyNotFound
	}
	return &policy, nil
}

func (f *fakeStore) SaveLateFeePolicy(_ context.Context, userID int64, policy billing.LateFeePolicy) error {
	f.policies[userID] = policy
	return nil
}

func (f *fakeStore) GetReminderLadder(_ context.Context, userID int64) (billing.Ladder, error) {
	return f.ladders[userID], nil
}

func (f *fakeStore) SaveReminderLadder(_ context.Context, userID int64, ladder billing.Ladder) error {
	f.ladders[userID] = ladder
	return nil
}

func (f *fakeStore) RecordReminderSent(_ context.Context, invoiceID int64, dayOffset int, _ billing.Tone) (bool, error) {
	key := fmt.Sprintf("%d:%d", invoiceID, dayOffset)
	if f.reminders[key] {
		return false, nil
	}
	f.reminders[key] = true
	return true, nil
}

func (f *fakeStore) CreateRecurringProfile(_ context.Context, profile *models.RecurringProfile) error {
	profile.ID = f.id()
	profile.Active = true
	copied := *profile
	f.profiles[profile.ID] = &copied
	return nil
}

func (f *fakeStore) ListRecurringProfiles(_ context.Context, userID int64) ([]models.RecurringProfile, error) {
	var out []models.RecurringProfile
	for _, p := range f.profiles {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDueRecurringProfiles(_ context.Context, asOf time.Time) ([]models.RecurringProfile, error) {
	var out []models.RecurringProfile
	for _, p := range f.profiles {
		if p.Active && billing.DayDifference(asOf, p.NextRun) >= 0 {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) AdvanceRecurringProfile(_ context.Context, id int64, nextRun time.Time) error {
	p, ok := f.profiles[id]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.NextRun = nextRun
	return nil
}

func (f *fakeStore) DeactivateRecurringProfile(_ context.Context, id, userID int64) error {
	p, ok := f.profiles[id]
	if !ok || (userID != 0 && p.UserID != userID) {
		return repository.ErrProfileNotFound
	}
	p.Active = false
	f.deactivated = append(f.deactivated, id)
	return nil
}

// fakeEnqueuer records what would have been handed to the task queue.
type fakeEnqueuer struct {
	reminders []enqueuedReminder
	lateFees  []int64
	issued    []int64
	err       error
}

type enqueuedReminder struct {
	invoiceID int64
	dayOffset int
	tone      billing.Tone
}

func (f *fakeEnqueuer) EnqueueReminder(invoiceID int64, dayOffset int, tone billing.Tone) error {
	if f.err != nil {
		return f.err
	}
	f.reminders = append(f.reminders, enqueuedReminder{invoiceID, dayOffset, tone})
	return nil
}

func (f *fakeEnqueuer) EnqueueLateFeeNotice(invoiceID int64) error {
	if f.err != nil {
		return f.err
	}
	f.lateFees = append(f.lateFees, invoiceID)
	return nil
}

func (f *fakeEnqueuer) EnqueueInvoiceIssued(invoiceID int64) error {
	if f.err != nil {
		return f.err
	}
	f.issued = append(f.issued, invoiceID)
	return nil
}

// fakeRateSource serves a canned table and counts fetches.
type fakeRateSource struct {
	rates   *ecb.Rates
	err     error
	fetches int
}

func (f *fakeRateSource) FetchDailyRates(_ context.Context) (*ecb.Rates, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

// fakeCache is a map-backed Cache with injectable read errors.
type fakeCache struct {
	values  map[string]string
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	f.lastTTL = ttl
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type testEnv struct {
	svc      *Service
	store    *fakeStore
	enqueuer *fakeEnqueuer
	rates    *fakeRateSource
	cache    *fakeCache
	defaults *config.Defaults
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	defaults, err := config.LoadDefaults("")
	require.NoError(t, err)

	env := &testEnv{
		store:    newFakeStore(),
		enqueuer: &fakeEnqueuer{},
		rates:    &fakeRateSource{},
		cache:    newFakeCache(),
		defaults: defaults,
		cfg: &config.Config{
			JWTSecret:       "test-secret",
			DefaultCurrency: "USD",
			RatesCacheTTL:   time.Hour,
		},
	}
	env.svc = NewService(env.store, env.enqueuer, env.rates, env.cache, defaults, quietLogger(), env.cfg)
	return env
}

// authedCtx impersonates the auth middleware for a user.
func authedCtx(userID int64) context.Context {
	return context.WithValue(context.Background(), "userID", strconv.FormatInt(userID, 10))
}

// seedOpenInvoice stores a sent invoice carrying no fee yet and returns
// the stored record, so assertions observe persisted state directly.
func seedOpenInvoice(store *fakeStore, userID int64, due time.Time, base string) *models.Invoice {
	inv := &models.Invoice{
		UserID:        userID,
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.test",
		Number:        fmt.Sprintf("INV-%d-%06d", due.Year(), len(store.invoices)+1),
		Currency:      "USD",
		Status:        models.StatusSent,
		IssueDate:     due.AddDate(0, 0, -30),
		DueDate:       due,
		Subtotal:      decimal.RequireFromString(base),
		TaxPercent:    decimal.Zero,
		Tax:           decimal.Zero,
		LateFee:       decimal.Zero,
		Total:         decimal.RequireFromString(base),
		AmountPaid:    decimal.Zero,
		BalanceDue:    decimal.RequireFromString(base),
	}
	if err := store.CreateInvoice(context.Background(), inv); err != nil {
		panic(err)
	}
	return store.invoices[inv.ID]
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse battery")))

	_, err = env.svc.Register(ctx, "alice2", "alice@example.com", "another password")
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "", "a@example.com", "long enough password")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Register(ctx, "bob", "", "long enough password")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Register(ctx, "bob", "b@example.com", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	tokenString, err := env.svc.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(env.cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, strconv.FormatInt(user.ID, 10), claims.Subject)

	_, err = env.svc.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "nobody@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserIDFromContextRequired(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ListInvoices(context.Background(), "")
	assert.Error(t, err)

	_, err = env.svc.ListInvoices(context.WithValue(context.Background(), "userID", "not-a-number"), "")
	assert.Error(t, err)
}
