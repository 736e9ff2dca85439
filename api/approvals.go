package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// ListPendingApprovals returns the records waiting on the caller.
// GET /api/approvals/pending
func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	h.listApprovals(w, r, h.Requests.PendingApprovals)
}

// ListDecidedApprovals returns the records the caller already decided.
// GET /api/approvals/approved
func (h *Handler) ListDecidedApprovals(w http.ResponseWriter, r *http.Request) {
	h.listApprovals(w, r, h.Requests.DecidedApprovals)
}

type taskLister func(ctx context.Context, approverID string, p leave.Pagination) (*leave.Page[leave.ApprovalTask], error)

func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request, list taskLister) {
	p, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := list(r.Context(), identityFrom(r.Context()).UserID, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageDTO(page, func(t leave.ApprovalTask) ApprovalTaskDTO {
		return ApprovalTaskDTO{
			Approval: toApprovalDTO(h.Labels, t.Record),
			Request:  toLeaveRequestDTO(h.Labels, t.Request),
		}
	}))
}

// DecideApproval approves or rejects the current level of a request.
// POST /api/approvals/{requestId}/decide
func (h *Handler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	var body DecideBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Requests.Decide(r.Context(),
		identityFrom(r.Context()).UserID,
		chi.URLParam(r, "requestId"),
		leave.Decision(body.Decision),
		body.Opinion,
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(h.Labels, *req))
}
