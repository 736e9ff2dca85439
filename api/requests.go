package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// ListLeaveRequests returns a filtered page of requests.
// GET /api/leave-requests?applicant_id=&department_id=&type=&status=&start_date=&end_date=&keyword=&page=&size=
func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := requestFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.Requests.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageDTO(page, func(req leave.Request) LeaveRequestDTO {
		return toLeaveRequestDTO(h.Labels, req)
	}))
}

// ExportLeaveRequests renders the filtered list as a spreadsheet.
// GET /api/leave-requests/export
func (h *Handler) ExportLeaveRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := requestFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.Requests.Export(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	buf, err := h.Exporter.Requests(list)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("leave-requests-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// GetLeaveRequest returns one request with its approval records.
// GET /api/leave-requests/{id}
func (h *Handler) GetLeaveRequest(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Requests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDetailDTO(h.Labels, *detail))
}

// CreateLeaveRequest stores a draft for the caller.
// POST /api/leave-requests
func (h *Handler) CreateLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body LeaveRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Requests.Create(r.Context(), identityFrom(r.Context()).UserID, body.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(h.Labels, *req))
}

// UpdateLeaveRequest edits a draft.
// PUT /api/leave-requests/{id}
func (h *Handler) UpdateLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body LeaveRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Requests.Update(r.Context(), identityFrom(r.Context()).UserID, chi.URLParam(r, "id"), body.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(h.Labels, *req))
}

// DeleteLeaveRequest removes a draft.
// DELETE /api/leave-requests/{id}
func (h *Handler) DeleteLeaveRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.Requests.Delete(r.Context(), identityFrom(r.Context()).UserID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitLeaveRequest sends a draft into approval.
// POST /api/leave-requests/{id}/submit
func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.Submit(r.Context(), identityFrom(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(h.Labels, *req))
}

// CancelLeaveRequest withdraws a request still in approval.
// POST /api/leave-requests/{id}/cancel
func (h *Handler) CancelLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.Cancel(r.Context(), identityFrom(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(h.Labels, *req))
}

// ResubmitLeaveRequest edits a rejected request and submits it again.
// POST /api/leave-requests/{id}/resubmit
func (h *Handler) ResubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body LeaveRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Requests.Resubmit(r.Context(), identityFrom(r.Context()).UserID, chi.URLParam(r, "id"), body.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(h.Labels, *req))
}

func requestFilter(r *http.Request) (leave.RequestFilter, error) {
	q := r.URL.Query()
	p, err := pagination(r)
	if err != nil {
		return leave.RequestFilter{}, err
	}
	from, err := queryDate(r, "start_date")
	if err != nil {
		return leave.RequestFilter{}, err
	}
	to, err := queryDate(r, "end_date")
	if err != nil {
		return leave.RequestFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return leave.RequestFilter{}, generic.Validation("end_date is before start_date")
	}
	return leave.RequestFilter{
		ApplicantID:  q.Get("applicant_id"),
		DepartmentID: q.Get("department_id"),
		Type:         leave.Type(q.Get("type")),
		Status:       leave.Status(q.Get("status")),
		From:         from,
		To:           to,
		Keyword:      q.Get("keyword"),
		Pagination:   p,
	}, nil
}
