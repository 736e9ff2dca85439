/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes leave requests, approvals, balances, holidays and the directory
  mirror over REST. Handlers parse and validate the HTTP request, call the
  domain service, and render the result. No business rule lives here.

ENDPOINTS:
  Leave requests:   requests.go
  Approvals:        approvals.go
  Balances:         balances.go
  Holidays:         holidays.go
  Directory sync:   directory.go
  Demo scenarios:   scenarios.go

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: SQLite store, also the directory mirror
  - Requests: leave request orchestrator
  - Ledger: annual balance ledger
  - Holidays: holiday calendar service
  - Exporter: xlsx rendering of request lists
  - Labels: display labels for codes

REQUEST FLOW:
  1. Resolve the caller identity (auth.go)
  2. Decode and validate the body (validate.go)
  3. Call the domain service
  4. Serialize response (dto.go)
  5. Render errors through writeError

ERROR HANDLING:
  *generic.AppError is rendered with its own status and code:
    {"code": "CONFLICT", "message": "...", "details": {...}}
  Anything else is logged with the request id and rendered as a bare
  INTERNAL_ERROR so store details never reach the client.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - generic/errors.go: Error taxonomy
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/export"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Requests *leave.RequestService
	Ledger   *leave.BalanceLedger
	Holidays *calendar.Service
	Exporter *export.Exporter
	Labels   leave.LabelSource

	logger *log.Entry
}

// NewHandler wires the domain services on top of one store.
func NewHandler(store *sqlite.Store, cfg *config.Configuration) *Handler {
	labels := leave.StaticLabels(cfg.Labels)

	ledger := leave.NewBalanceLedger(store, store, leave.NewQuotaCalculator(cfg.ProRate()))
	ledger.SetLockWait(cfg.LockWait())
	chain := leave.NewApprovalChain(store, cfg.Leave.SeniorApproverRole)

	return &Handler{
		Store:    store,
		Requests: leave.NewRequestService(store, store, ledger, chain),
		Ledger:   ledger,
		Holidays: calendar.NewService(store),
		Exporter: export.NewExporter(labels),
		Labels:   labels,
		logger:   log.WithField("component", "api"),
	}
}

// Health reports whether the database answers.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.logger.WithError(err).Error("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := generic.AsAppError(err)
	if appErr.Code == generic.CodeInternal {
		h.logger.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
	}
	writeJSON(w, appErr.HTTPStatus, ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, generic.Validation("%s must be an integer", name)
	}
	return n, nil
}

func pagination(r *http.Request) (leave.Pagination, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return leave.Pagination{}, err
	}
	size, err := queryInt(r, "size")
	if err != nil {
		return leave.Pagination{}, err
	}
	return leave.Pagination{Page: page, Size: size}, nil
}

func pathYear(raw string) (int, error) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1970 || year > 9999 {
		return 0, generic.Validation("invalid year %q", raw)
	}
	return year, nil
}

func queryDate(r *http.Request, name string) (*generic.TimePoint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(raw)
	if err != nil {
		return nil, generic.Validation("%s must be a date (YYYY-MM-DD)", name)
	}
	return &d, nil
}

// selfOrAdmin lets employees read their own records and admins read any.
func selfOrAdmin(ctx context.Context, employeeID string) error {
	id := identityFrom(ctx)
	if id.Admin || id.UserID == employeeID {
		return nil
	}
	return generic.Forbidden("cannot access records of %s", employeeID)
}
