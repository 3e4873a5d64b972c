package handler

import (
	"net/http"

	"github.com/ledgerbill/invoice-service/internal/billing"
)

// GetLateFeePolicy returns the caller's effective late fee policy
func (h *Handler) GetLateFeePolicy(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetLateFeePolicy(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// SaveLateFeePolicy validates and stores a late fee policy, then echoes
// the effective settings back.
func (h *Handler) SaveLateFeePolicy(w http.ResponseWriter, r *http.Request) {
	var policy billing.LateFeePolicy
	if err := decodeBody(r, &policy); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	if err := h.svc.SaveLateFeePolicy(r.Context(), policy); err != nil {
		h.respondError(w, err)
		return
	}
	settings, err := h.svc.GetLateFeePolicy(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// GetReminderLadder returns the caller's effective reminder schedule
func (h *Handler) GetReminderLadder(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetReminderLadder(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// SaveReminderLadder validates and stores a reminder schedule
func (h *Handler) SaveReminderLadder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ladder billing.Ladder `json:"ladder"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	if err := h.svc.SaveReminderLadder(r.Context(), req.Ladder); err != nil {
		h.respondError(w, err)
		return
	}
	settings, err := h.svc.GetReminderLadder(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
