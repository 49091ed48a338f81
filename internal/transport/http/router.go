package http

import (
	"log/slog"
	"net/http"

	"chess-quiz-service/internal/app"
	"chess-quiz-service/internal/auth"
	"chess-quiz-service/internal/metrics"
	"chess-quiz-service/internal/qrcode"
	"chess-quiz-service/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Games       *app.GameService
	Auth        *auth.Service
	QRCodes     *qrcode.Generator
	Observer    middleware.HTTPObserver
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(deps.Auth, logger)
	gameHandler := NewGameHandler(deps.Games, logger)
	questionHandler := NewQuestionHandler(deps.Games, logger)
	qrHandler := NewQRCodeHandler(deps.QRCodes, logger)
	wsHandler := NewWSHandler(deps.Games, logger)

	r := chi.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Observer))
	r.Use(middleware.NewRecoveryMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Get("/ws/leaderboard", wsHandler.ServeWS)
	r.Handle("/qrcodes/*", http.StripPrefix("/qrcodes/", qrHandler.Images()))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)

			r.Get("/questions/random", questionHandler.Random)
			r.Get("/questions/by-position/{position}", questionHandler.ByPosition)
			r.Get("/questions/{id}", questionHandler.ByID)

			r.Get("/leaderboard", gameHandler.Leaderboard)
			r.Get("/qrcode/{position}", qrHandler.Generate)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.Auth))
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}
			r.Get("/auth/me", authHandler.Me)

			r.Post("/games", gameHandler.Start)
			r.Put("/games/{id}/end", gameHandler.End)
			r.Get("/games/{id}/positions/{position}/question", gameHandler.SelectQuestion)
			r.Post("/games/{id}/answers", gameHandler.SubmitAnswer)
			r.Get("/games/{id}/moves", gameHandler.ListMoves)

			r.Post("/questions/{id}/check", questionHandler.Check)

			r.Get("/users/stats", gameHandler.UserStats)
		})
	})
	return r
}
