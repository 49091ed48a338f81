package http

import (
	"log/slog"
	"net/http"

	"chess-quiz-service/internal/domain"
	"chess-quiz-service/internal/qrcode"
	"github.com/go-chi/chi/v5"
)

type QRCodeHandler struct {
	generator *qrcode.Generator
	logger    *slog.Logger
}

func NewQRCodeHandler(generator *qrcode.Generator, logger *slog.Logger) *QRCodeHandler {
	return &QRCodeHandler{generator: generator, logger: logger}
}

type qrCodeResponse struct {
	Position  string `json:"position"`
	QRCodeURL string `json:"qrCodeUrl"`
}

func (h *QRCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	position, err := domain.ParsePosition(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ref, err := h.generator.GenerateForPosition(r.Context(), string(position))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, qrCodeResponse{Position: string(position), QRCodeURL: ref})
}

// Images serves the generated PNG files.
func (h *QRCodeHandler) Images() http.Handler {
	return http.FileServer(http.Dir(h.generator.Dir()))
}
