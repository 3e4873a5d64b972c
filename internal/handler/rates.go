package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// ConvertRates converts an amount between two currencies using the
// latest ECB reference rates. Public so pricing pages can call it.
func (h *Handler) ConvertRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(q.Get("from"))
	to := strings.ToUpper(q.Get("to"))
	if from == "" || to == "" {
		respondJSON(w, http.StatusBadRequest, errorBody(errors.New("from and to currencies are required")))
		return
	}
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody(errors.New("amount must be a decimal number")))
		return
	}

	converted, rates, err := h.svc.ConvertAmount(r.Context(), amount, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"amount":    amount,
		"from":      from,
		"to":        to,
		"converted": converted,
		"rate_date": rates.Date,
	})
}
