package http

import (
	"log/slog"
	"net/http"

	"chess-quiz-service/internal/app"
	"chess-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// QuestionHandler serves read-only question lookups. Answers never leave through it.
type QuestionHandler struct {
	games  *app.GameService
	logger *slog.Logger
}

func NewQuestionHandler(games *app.GameService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{games: games, logger: logger}
}

type checkRequest struct {
	Answer string `json:"answer"`
}

type checkResponse struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

func (h *QuestionHandler) Random(w http.ResponseWriter, r *http.Request) {
	difficulty := domain.Medium
	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		d, err := domain.ParseDifficulty(raw)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		difficulty = d
	}
	q, err := h.games.Bank().GetRandomByDifficulty(r.Context(), difficulty)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q.Public())
}

func (h *QuestionHandler) ByID(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q, err := h.games.Bank().GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q.Public())
}

func (h *QuestionHandler) ByPosition(w http.ResponseWriter, r *http.Request) {
	position, err := domain.ParsePosition(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q, err := h.games.Bank().GetByPosition(r.Context(), position)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view := q.Public()
	view.Position = position
	writeJSON(w, http.StatusOK, view)
}

// Check tells whether an answer is right. It is an authenticated practice lookup and never
// works for a question the caller currently has pending.
func (h *QuestionHandler) Check(w http.ResponseWriter, r *http.Request) {
	caller, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req checkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	correct, explanation, err := h.games.CheckOnly(r.Context(), caller, id, req.Answer)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Correct: correct, Explanation: explanation})
}
