package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// balancePath reads {employeeId}/{year} and checks the caller may see it.
func balancePath(r *http.Request) (string, int, error) {
	employeeID := chi.URLParam(r, "employeeId")
	year, err := pathYear(chi.URLParam(r, "year"))
	if err != nil {
		return "", 0, err
	}
	if err := selfOrAdmin(r.Context(), employeeID); err != nil {
		return "", 0, err
	}
	return employeeID, year, nil
}

// GetBalance returns the annual balance, creating it on first read.
// GET /api/balances/{employeeId}/{year}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, year, err := balancePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.Ledger.GetOrInit(r.Context(), employeeID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*b))
}

// InitBalance creates the balance row explicitly. An existing row is a
// conflict.
// POST /api/balances/{employeeId}/{year}/init
func (h *Handler) InitBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, year, err := balancePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body InitBalanceBody
	if r.ContentLength != 0 {
		if err := decodeBody(r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	b, err := h.Ledger.Initialize(r.Context(), employeeID, year, body.AnnualTotal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBalanceDTO(*b))
}

// UpdateBalance replaces the annual total; used is preserved.
// PUT /api/balances/{employeeId}/{year}
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, year, err := balancePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body UpdateBalanceBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.Ledger.Update(r.Context(), employeeID, year, *body.AnnualTotal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*b))
}

// ListUsageLogs returns the ledger entries of one employee-year.
// GET /api/balances/{employeeId}/{year}/logs
func (h *Handler) ListUsageLogs(w http.ResponseWriter, r *http.Request) {
	employeeID, year, err := balancePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logs, err := h.Ledger.UsageLogs(r.Context(), employeeID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]UsageLogDTO, 0, len(logs))
	for _, entry := range logs {
		dtos = append(dtos, toUsageLogDTO(entry))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// VerifyBalance replays the usage log against the summary row.
// GET /api/balances/{employeeId}/{year}/verify
func (h *Handler) VerifyBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, year, err := balancePath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.Ledger.Verify(r.Context(), employeeID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !v.Consistent {
		h.logger.WithFields(log.Fields{
			"employee_id": employeeID, "year": year,
		}).Warn("balance does not match its usage log")
	}
	writeJSON(w, http.StatusOK, VerificationDTO{
		Balance:      toBalanceDTO(v.Balance),
		ReplayedUsed: v.ReplayedUsed,
		Entries:      v.Entries,
		Consistent:   v.Consistent,
	})
}
