package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holidays and make-up workdays of one year.
// GET /api/holidays?year=2025
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if year == 0 {
		year = time.Now().Year()
	}
	list, err := h.Holidays.List(r.Context(), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(list))
}

// ListHolidaysInRange returns the holidays between two dates inclusive.
// GET /api/holidays/range?start=2025-01-01&end=2025-01-31
func (h *Handler) ListHolidaysInRange(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if start == nil || end == nil {
		h.writeError(w, r, generic.Validation("start and end are required"))
		return
	}
	list, err := h.Holidays.Range(r.Context(), generic.Period{Start: *start, End: *end})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(list))
}

// CreateHoliday adds a holiday or make-up workday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var body HolidayBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := body.input()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	holiday, err := h.Holidays.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(*holiday))
}

// UpdateHoliday replaces a holiday.
// PUT /api/holidays/{id}
func (h *Handler) UpdateHoliday(w http.ResponseWriter, r *http.Request) {
	var body HolidayBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := body.input()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	holiday, err := h.Holidays.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTO(*holiday))
}

// DeleteHoliday removes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Holidays.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
