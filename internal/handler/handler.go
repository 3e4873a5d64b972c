package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/config"
	"github.com/ledgerbill/invoice-service/internal/middleware"
	"github.com/ledgerbill/invoice-service/internal/pdf"
	"github.com/ledgerbill/invoice-service/internal/repository"
	"github.com/ledgerbill/invoice-service/internal/service"
)

// Archiver persists rendered invoice documents. A nil Archiver disables
// archiving without touching the render path.
type Archiver interface {
	StoreInvoicePDF(ctx context.Context, userID int64, number string, data []byte) (string, error)
}

type Handler struct {
	svc     *service.Service
	pdf     *pdf.Renderer
	archive Archiver
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, renderer *pdf.Renderer, archive Archiver, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, pdf: renderer, archive: archive, log: log}
}

// Routes assembles the router: register, login and rate conversion are
// public, everything else sits behind the auth middleware.
func (h *Handler) Routes(cfg *config.Config) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/rates/convert", h.ConvertRates).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/invoices", h.CreateInvoice).Methods("POST")
	authRouter.HandleFunc("/invoices", h.ListInvoices).Methods("GET")
	authRouter.HandleFunc("/invoices/{id:[0-9]+}", h.GetInvoice).Methods("GET")
	authRouter.HandleFunc("/invoices/{id:[0-9]+}/payments", h.RecordPayment).Methods("POST")
	authRouter.HandleFunc("/invoices/{id:[0-9]+}/void", h.VoidInvoice).Methods("POST")
	authRouter.HandleFunc("/invoices/{id:[0-9]+}/pdf", h.InvoicePDF).Methods("GET")
	authRouter.HandleFunc("/invoices/{id:[0-9]+}/assessment", h.AssessInvoice).Methods("GET")
	authRouter.HandleFunc("/settings/late-fee-policy", h.GetLateFeePolicy).Methods("GET")
	authRouter.HandleFunc("/settings/late-fee-policy", h.SaveLateFeePolicy).Methods("PUT")
	authRouter.HandleFunc("/settings/reminder-ladder", h.GetReminderLadder).Methods("GET")
	authRouter.HandleFunc("/settings/reminder-ladder", h.SaveReminderLadder).Methods("PUT")
	authRouter.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	authRouter.HandleFunc("/customers", h.ListCustomers).Methods("GET")
	authRouter.HandleFunc("/recurring", h.CreateRecurringProfile).Methods("POST")
	authRouter.HandleFunc("/recurring", h.ListRecurringProfiles).Methods("GET")
	authRouter.HandleFunc("/recurring/{id:[0-9]+}/deactivate", h.DeactivateRecurringProfile).Methods("POST")
	authRouter.HandleFunc("/reports/aging", h.AgingReport).Methods("GET")
	authRouter.HandleFunc("/reports/receivables", h.ReceivablesSummary).Methods("GET")
	authRouter.HandleFunc("/admin/run-cycle", h.RunCycle).Methods("POST")

	return r
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// RunCycle triggers the daily billing pass for a given date, defaulting
// to today. The cron worker runs the same code path on schedule.
func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	stats := h.svc.RunBillingCycle(r.Context(), asOf)
	respondJSON(w, http.StatusOK, stats)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// dateParam reads a YYYY-MM-DD query parameter, defaulting to now.
func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a YYYY-MM-DD date")
	}
	return t, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// respondError maps domain errors onto HTTP statuses: configuration
// errors are 422, missing rows 404, rejected input 400, conflicting
// state 409. Anything unrecognized is logged and hidden behind a 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var cfgErr *billing.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody(err))
	case errors.Is(err, repository.ErrInvoiceNotFound),
		errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		respondJSON(w, http.StatusNotFound, errorBody(err))
	case errors.Is(err, service.ErrInvalidInput):
		respondJSON(w, http.StatusBadRequest, errorBody(err))
	case errors.Is(err, service.ErrInvalidCredentials):
		respondJSON(w, http.StatusUnauthorized, errorBody(err))
	case errors.Is(err, service.ErrPaymentExceedsBalance),
		errors.Is(err, service.ErrInvoiceNotPayable),
		errors.Is(err, service.ErrVoidAfterPayment),
		errors.Is(err, repository.ErrEmailTaken):
		respondJSON(w, http.StatusConflict, errorBody(err))
	default:
		h.log.Errorf("Request failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
