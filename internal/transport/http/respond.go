package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"chess-quiz-service/internal/domain"
	"chess-quiz-service/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind to a status. Internal causes are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var status int
	var code string
	switch domain.Kind(err) {
	case domain.ErrValidation:
		status, code = http.StatusBadRequest, "validation_error"
	case domain.ErrUnauthorized:
		status, code = http.StatusUnauthorized, "unauthorized"
	case domain.ErrForbidden:
		status, code = http.StatusForbidden, "forbidden"
	case domain.ErrNotFound:
		status, code = http.StatusNotFound, "not_found"
	case domain.ErrConflict:
		status, code = http.StatusConflict, "conflict"
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w, r)
		return
	}
	middleware.WriteErrorResponse(w, r, status, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is empty")
		}
		return domain.Validation("malformed request body")
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid %s", name)
	}
	return id, nil
}

func accountID(r *http.Request) (int64, error) {
	id, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		return 0, domain.ErrInvalidToken
	}
	return id, nil
}
