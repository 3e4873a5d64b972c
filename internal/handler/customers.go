package handler

import (
	"net/http"

	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/service"
)

// CreateCustomer handles customer creation
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var input service.CustomerInput
	if err := decodeBody(r, &input); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

// ListCustomers returns the caller's customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	respondJSON(w, http.StatusOK, customers)
}
