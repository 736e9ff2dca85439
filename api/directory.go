package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// DIRECTORY SYNC HANDLERS
// =============================================================================
// The HR system owns employees and departments. It pushes them here so the
// approval chain and quota calculator have something to resolve against.

// GetEmployee returns one mirrored employee.
// GET /api/directory/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if e == nil {
		h.writeError(w, r, generic.NotFound("employee %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*e))
}

// PutEmployee inserts or replaces one employee.
// PUT /api/directory/employees/{id}
func (h *Handler) PutEmployee(w http.ResponseWriter, r *http.Request) {
	var body EmployeeBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := body.employee(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Store.SaveEmployee(r.Context(), e); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e))
}

// PutDepartment inserts or replaces one department.
// PUT /api/directory/departments/{id}
func (h *Handler) PutDepartment(w http.ResponseWriter, r *http.Request) {
	var body DepartmentBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	d := leave.Department{ID: chi.URLParam(r, "id"), Name: body.Name, LeaderID: body.LeaderID}
	if err := h.Store.SaveDepartment(r.Context(), d); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DepartmentDTO{ID: d.ID, Name: d.Name, LeaderID: d.LeaderID})
}
