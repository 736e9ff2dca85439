/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind proxies
  3. AccessLog:     logrus request logging
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Origins from config
  6. Authenticate:  Bearer JWT on everything under /api except /api/health

ROUTE GROUPS:
  /api/health               Liveness + database ping
  /api/leave-requests/*     Leave request lifecycle
  /api/approvals/*          Approver queues and decisions
  /api/balances/*           Annual balance ledger
  /api/holidays/*           Holiday calendar (mutations admin)
  /api/directory/*          Directory sync surface (writes admin)
  /api/scenarios/*          Demo data (admin)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token parsing and admin guard
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/config"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg *config.Configuration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate(cfg.Auth.JWTSecret))

			r.Route("/leave-requests", func(r chi.Router) {
				r.Get("/", h.ListLeaveRequests)
				r.Post("/", h.CreateLeaveRequest)
				r.Get("/export", h.ExportLeaveRequests)
				r.Get("/{id}", h.GetLeaveRequest)
				r.Put("/{id}", h.UpdateLeaveRequest)
				r.Delete("/{id}", h.DeleteLeaveRequest)
				r.Post("/{id}/submit", h.SubmitLeaveRequest)
				r.Post("/{id}/cancel", h.CancelLeaveRequest)
				r.Post("/{id}/resubmit", h.ResubmitLeaveRequest)
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/pending", h.ListPendingApprovals)
				r.Get("/approved", h.ListDecidedApprovals)
				r.Post("/{requestId}/decide", h.DecideApproval)
			})

			r.Route("/balances/{employeeId}/{year}", func(r chi.Router) {
				r.Get("/", h.GetBalance)
				r.Get("/logs", h.ListUsageLogs)
				r.With(h.RequireAdmin).Post("/init", h.InitBalance)
				r.With(h.RequireAdmin).Put("/", h.UpdateBalance)
				r.With(h.RequireAdmin).Get("/verify", h.VerifyBalance)
			})

			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidays)
				r.Get("/range", h.ListHolidaysInRange)
				r.With(h.RequireAdmin).Post("/", h.CreateHoliday)
				r.With(h.RequireAdmin).Put("/{id}", h.UpdateHoliday)
				r.With(h.RequireAdmin).Delete("/{id}", h.DeleteHoliday)
			})

			r.Route("/directory", func(r chi.Router) {
				r.Get("/employees/{id}", h.GetEmployee)
				r.With(h.RequireAdmin).Put("/employees/{id}", h.PutEmployee)
				r.With(h.RequireAdmin).Put("/departments/{id}", h.PutDepartment)
			})

			r.Route("/scenarios", func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		})
	})

	return r
}

// accessLog writes one logrus line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.WithFields(log.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"remote":     r.RemoteAddr,
			}).Info("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}
