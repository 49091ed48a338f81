package http

import (
	"log/slog"
	"net/http"
	"time"

	"chess-quiz-service/internal/app"
	"chess-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// GameHandler serves session, question-cycle and stats endpoints.
type GameHandler struct {
	service *app.GameService
	logger  *slog.Logger
}

func NewGameHandler(service *app.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{service: service, logger: logger}
}

type startResponse struct {
	SessionID int64     `json:"sessionId"`
	StartTime time.Time `json:"startTime"`
}

type endRequest struct {
	Score *int `json:"score"`
}

type answerRequest struct {
	QuestionID int64  `json:"questionId"`
	Position   string `json:"position"`
	Answer     string `json:"answer"`
	TimeTaken  *int   `json:"timeTaken"`
}

type movesResponse struct {
	Moves []domain.Move `json:"moves"`
}

func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	session, err := h.service.StartSession(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: session.ID, StartTime: session.StartTime})
}

func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sessionID, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req endRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Score == nil {
		writeError(w, r, h.logger, domain.Validation("score is required"))
		return
	}
	session, err := h.service.EndSession(r.Context(), sessionID, id, *req.Score)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *GameHandler) SelectQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sessionID, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	question, err := h.service.SelectQuestion(r.Context(), id, sessionID, chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *GameHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sessionID, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), id, domain.AnswerSubmission{
		SessionID:  sessionID,
		QuestionID: req.QuestionID,
		Position:   req.Position,
		Answer:     req.Answer,
		TimeTaken:  req.TimeTaken,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *GameHandler) ListMoves(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sessionID, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	moves, err := h.service.ListMoves(r.Context(), sessionID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movesResponse{Moves: moves})
}

func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.TopSessions(r.Context(), 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Leaderboard{Entries: entries, UpdatedAt: time.Now()})
}

func (h *GameHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	stats, err := h.service.UserStats(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
