package handler

import (
	"net/http"

	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/service"
)

// CreateRecurringProfile handles subscription creation
func (h *Handler) CreateRecurringProfile(w http.ResponseWriter, r *http.Request) {
	var input service.RecurringInput
	if err := decodeBody(r, &input); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	profile, err := h.svc.CreateRecurringProfile(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, profile)
}

// ListRecurringProfiles returns the caller's subscriptions
func (h *Handler) ListRecurringProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.ListRecurringProfiles(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if profiles == nil {
		profiles = []models.RecurringProfile{}
	}
	respondJSON(w, http.StatusOK, profiles)
}

// DeactivateRecurringProfile stops a subscription from billing
func (h *Handler) DeactivateRecurringProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	if err := h.svc.DeactivateRecurringProfile(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
