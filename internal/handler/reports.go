package handler

import (
	"net/http"
)

// AgingReport buckets outstanding invoices by how long overdue they are
func (h *Handler) AgingReport(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	report, err := h.svc.AgingReport(r.Context(), r.URL.Query().Get("currency"), asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// ReceivablesSummary returns the headline receivables numbers
func (h *Handler) ReceivablesSummary(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	summary, err := h.svc.ReceivablesSummary(r.Context(), r.URL.Query().Get("currency"), asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
