package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"product-store/internal/apperror"
	"product-store/internal/logger"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(ctx, "Error encoding response to JSON", logger.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, detail any) {
	respondJSON(ctx, w, status, ErrorResponse{Detail: detail})
}

// respondServiceError maps the service error kinds onto HTTP statuses.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		logger.Warn(ctx, "Not found", logger.Err(err))
		respondError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperror.ErrInsert):
		logger.Error(ctx, "Insert failed", logger.Err(err))
		respondError(ctx, w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error(ctx, "Unhandled service error", logger.Err(err))
		respondError(ctx, w, http.StatusInternalServerError, "Internal Server Error")
	}
}
