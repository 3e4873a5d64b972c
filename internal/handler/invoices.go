package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/service"
)

// CreateInvoice handles invoice creation
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInvoiceInput
	if err := decodeBody(r, &input); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// ListInvoices returns the caller's invoices, optionally filtered by
// the status query parameter.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.svc.ListInvoices(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	respondJSON(w, http.StatusOK, invoices)
}

// GetInvoice returns one invoice with its payment history
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	inv, payments, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"invoice":  inv,
		"payments": payments,
	})
}

// RecordPayment applies a payment to an invoice
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	var input service.PaymentInput
	if err := decodeBody(r, &input); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	payment, err := h.svc.RecordPayment(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// VoidInvoice cancels an unpaid invoice
func (h *Handler) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	inv, err := h.svc.VoidInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// AssessInvoice previews the late fee and due reminder for an invoice
// on a given date without persisting anything.
func (h *Handler) AssessInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	assessment, err := h.svc.AssessInvoice(r.Context(), id, asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assessment)
}

// InvoicePDF renders the invoice as a PDF document. When an archive is
// configured the document is also stored there; archive failures are
// logged but never block the download.
func (h *Handler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	inv, payments, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	data, err := h.pdf.Render(inv, payments)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.archive != nil {
		if _, err := h.archive.StoreInvoicePDF(r.Context(), inv.UserID, inv.Number, data); err != nil {
			h.log.Warnf("Failed to archive invoice %s: %v", inv.Number, err)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.Number))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
