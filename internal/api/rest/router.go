package rest

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter wires every route. All /api/v1 routes sit behind authentication;
// the health endpoint does not.
func NewRouter(h *Handler, auth *AuthMiddleware, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/collection/dashboard", h.handleDashboard)
	api.HandleFunc("GET /api/v1/collection/kpis", h.handleKPIs)

	api.HandleFunc("POST /api/v1/fees/{id}/mark-paid", h.handleMarkPaid)
	api.HandleFunc("POST /api/v1/fees/{id}/payments", h.handlePartialPayment)
	api.HandleFunc("POST /api/v1/fees/bulk/mark-paid", h.handleBulkMarkPaid)
	api.HandleFunc("POST /api/v1/fees/bulk/notes", h.handleBulkAddNote)
	api.HandleFunc("POST /api/v1/fees/bulk/reminders", h.handleBulkSendReminder)

	api.HandleFunc("GET /api/v1/disputes", h.handleListDisputes)
	api.HandleFunc("POST /api/v1/disputes/{id}/resolve", h.handleResolveDispute)

	api.HandleFunc("GET /api/v1/tracking/{year}", h.handleTracking)

	api.HandleFunc("POST /api/v1/group-fees/{id}/mark-paid", h.handleGroupMarkPaid)

	mux.Handle("/api/v1/", auth.Middleware(api))

	return Chain(mux,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)
}
