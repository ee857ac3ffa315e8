package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	domainErrors "github.com/firmdesk/collections-backend/internal/domain/errors"
)

// dataResponse is the success envelope; every 2xx body is {"data": ...}.
type dataResponse struct {
	Data interface{} `json:"data"`
}

// errorResponse is the failure envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, dataResponse{Data: data})
}

// writeError maps domain errors to their HTTP shape. Unknown errors become an
// opaque 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode >= 500 && logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		writeJSON(w, appErr.StatusCode, errorResponse{Error: errorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}})
		return
	}

	if logger != nil {
		logger.Error("unhandled error", zap.Error(err))
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	}})
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
