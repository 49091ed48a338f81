package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chess-quiz-service/internal/domain"
)

// DefaultLeaderboardSize is the number of sessions TopSessions returns when no limit is given.
const DefaultLeaderboardSize = 10

// SessionRepository abstracts how game sessions and their moves are stored (in-memory, Postgres).
type SessionRepository interface {
	CreateSession(ctx context.Context, accountID int64, startedAt time.Time) (domain.GameSession, error)
	GetSession(ctx context.Context, id int64) (domain.GameSession, error)
	// CompleteSession flips an open session owned by accountID to completed. It returns
	// ErrSessionEnded when no open session matched. A non-nil finalScore raises the stored
	// score to at least that value.
	CompleteSession(ctx context.Context, id, accountID int64, endedAt time.Time, finalScore *int) (domain.GameSession, error)
	// AppendMove stores the move and adds points to the session score in one transaction.
	AppendMove(ctx context.Context, move domain.Move, points int) (domain.Move, int, error)
	ListMoves(ctx context.Context, sessionID int64) ([]domain.Move, error)
	// OpenSessionIDs lists the account's sessions that are not completed.
	OpenSessionIDs(ctx context.Context, accountID int64) ([]int64, error)
}

// LeaderboardRepository derives standings from completed sessions.
type LeaderboardRepository interface {
	TopCompleted(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	StatsForAccount(ctx context.Context, accountID int64) (domain.UserStats, error)
}

// PendingStore tracks the question-answer cycle of each session: a session is Idle
// when nothing is stored and QuestionPending otherwise.
type PendingStore interface {
	// Open moves a session to QuestionPending. It fails with ErrQuestionPending if a
	// question is already open.
	Open(ctx context.Context, pending domain.PendingQuestion) error
	Peek(ctx context.Context, sessionID int64) (domain.PendingQuestion, bool, error)
	// Resolve moves a session back to Idle if its open question is questionID, and
	// fails with ErrNoPendingQuestion otherwise.
	Resolve(ctx context.Context, sessionID, questionID int64) (domain.PendingQuestion, error)
	Clear(ctx context.Context, sessionID int64) error
}

// Metrics receives gameplay counters. A nil Metrics is replaced by a no-op.
type Metrics interface {
	SessionStarted()
	SessionCompleted(score int)
	QuestionServed(difficulty domain.Difficulty)
	AnswerEvaluated(correct bool, points int)
}

// Option configures a GameService.
type Option func(*GameService)

// WithClientScore makes EndSession raise the stored score to the client-supplied final score.
func WithClientScore(trust bool) Option {
	return func(s *GameService) { s.trustClientScore = trust }
}

// WithLeaderboardSize overrides DefaultLeaderboardSize.
func WithLeaderboardSize(n int) Option {
	return func(s *GameService) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithMetrics reports gameplay events to m instead of discarding them.
func WithMetrics(m Metrics) Option {
	return func(s *GameService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *GameService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// GameService contains the game session use cases.
type GameService struct {
	sessions    SessionRepository
	leaderboard LeaderboardRepository
	bank        *QuestionBank
	pending     PendingStore
	feed        *LeaderboardFeed

	trustClientScore bool
	leaderboardSize  int
	metrics          Metrics
	logger           *slog.Logger
	now              func() time.Time
}

// NewGameService wires the session, leaderboard and pending-question stores to a question bank.
func NewGameService(sessions SessionRepository, leaderboard LeaderboardRepository, bank *QuestionBank, pending PendingStore, opts ...Option) *GameService {
	s := &GameService{
		sessions:        sessions,
		leaderboard:     leaderboard,
		bank:            bank,
		pending:         pending,
		leaderboardSize: DefaultLeaderboardSize,
		metrics:         noopMetrics{},
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.feed = newLeaderboardFeed(s.now)
	return s
}

// Bank exposes the question bank used for selection.
func (s *GameService) Bank() *QuestionBank {
	return s.bank
}

// StartSession opens a new session with score 0. Earlier open sessions stay open.
func (s *GameService) StartSession(ctx context.Context, accountID int64) (domain.GameSession, error) {
	session, err := s.sessions.CreateSession(ctx, accountID, s.now())
	if err != nil {
		return domain.GameSession{}, storeError("create session", err)
	}
	s.metrics.SessionStarted()
	s.logger.InfoContext(ctx, "game session started", "session_id", session.ID, "account_id", accountID)
	return session, nil
}

// EndSession completes a session exactly once.
func (s *GameService) EndSession(ctx context.Context, sessionID, accountID int64, finalScore int) (domain.GameSession, error) {
	if finalScore < 0 {
		return domain.GameSession{}, domain.Validation("final score must not be negative")
	}
	session, err := s.ownedSession(ctx, sessionID, accountID)
	if err != nil {
		return domain.GameSession{}, err
	}
	if session.Completed {
		return domain.GameSession{}, domain.ErrSessionEnded
	}

	var override *int
	if s.trustClientScore {
		override = &finalScore
	} else if finalScore != session.Score {
		s.logger.WarnContext(ctx, "client final score ignored",
			"session_id", sessionID, "client_score", finalScore, "server_score", session.Score)
	}

	ended, err := s.sessions.CompleteSession(ctx, sessionID, accountID, s.now(), override)
	if err != nil {
		return domain.GameSession{}, storeError("complete session", err)
	}
	if err := s.pending.Clear(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "clear pending question", "session_id", sessionID, "error", err)
	}

	s.metrics.SessionCompleted(ended.Score)
	s.logger.InfoContext(ctx, "game session ended", "session_id", sessionID, "score", ended.Score)
	s.publishLeaderboard(ctx)
	return ended, nil
}

// RecordMove appends a move and adds its bonus to the session score atomically.
// Moves against completed sessions are rejected.
func (s *GameService) RecordMove(ctx context.Context, sessionID int64, position domain.Position, questionID int64, correct bool, timeTaken *int) (domain.Move, int, error) {
	points := bonusFor(correct, timeTaken)
	move, score, err := s.sessions.AppendMove(ctx, domain.Move{
		SessionID:  sessionID,
		QuestionID: questionID,
		Position:   position,
		Correct:    correct,
		TimeTaken:  timeTaken,
		CreatedAt:  s.now(),
	}, points)
	if err != nil {
		return domain.Move{}, 0, storeError("record move", err)
	}
	s.metrics.AnswerEvaluated(correct, points)
	return move, score, nil
}

// ListMoves returns the moves of an owned session in the order they were made.
func (s *GameService) ListMoves(ctx context.Context, sessionID, accountID int64) ([]domain.Move, error) {
	if _, err := s.ownedSession(ctx, sessionID, accountID); err != nil {
		return nil, err
	}
	moves, err := s.sessions.ListMoves(ctx, sessionID)
	if err != nil {
		return nil, storeError("list moves", err)
	}
	return moves, nil
}

// SelectQuestion serves a question for a position and moves the session to QuestionPending.
func (s *GameService) SelectQuestion(ctx context.Context, accountID, sessionID int64, rawPosition string) (domain.PublicQuestion, error) {
	position, err := domain.ParsePosition(rawPosition)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	session, err := s.ownedSession(ctx, sessionID, accountID)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	if session.Completed {
		return domain.PublicQuestion{}, domain.ErrSessionCompleted
	}

	if _, open, err := s.pending.Peek(ctx, sessionID); err != nil {
		return domain.PublicQuestion{}, storeError("peek pending question", err)
	} else if open {
		return domain.PublicQuestion{}, domain.ErrQuestionPending
	}

	difficulty := DifficultyForPosition(position)
	question, err := s.bank.GetRandomByDifficulty(ctx, difficulty)
	if err != nil {
		return domain.PublicQuestion{}, err
	}

	// Open is the atomic guard; Peek above only gives an early, cheap rejection.
	if err := s.pending.Open(ctx, domain.PendingQuestion{
		SessionID:  sessionID,
		QuestionID: question.ID,
		Position:   position,
		Difficulty: difficulty,
		ServedAt:   s.now(),
	}); err != nil {
		return domain.PublicQuestion{}, storeError("open pending question", err)
	}

	s.metrics.QuestionServed(difficulty)
	view := question.Public()
	view.Position = position
	return view, nil
}

// SubmitAnswer evaluates the answer to the pending question, records the move and
// returns the session to Idle whether or not the answer was correct.
func (s *GameService) SubmitAnswer(ctx context.Context, accountID int64, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	position, err := domain.ParsePosition(sub.Position)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if sub.TimeTaken != nil && *sub.TimeTaken < 0 {
		return domain.AnswerResult{}, domain.Validation("time taken must not be negative")
	}
	session, err := s.ownedSession(ctx, sub.SessionID, accountID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if session.Completed {
		return domain.AnswerResult{}, domain.ErrSessionCompleted
	}

	pending, open, err := s.pending.Peek(ctx, sub.SessionID)
	if err != nil {
		return domain.AnswerResult{}, storeError("peek pending question", err)
	}
	if !open {
		return domain.AnswerResult{}, domain.ErrNoPendingQuestion
	}
	if pending.QuestionID != sub.QuestionID || pending.Position != position {
		return domain.AnswerResult{}, domain.Validation("answer is for question %d at %s, pending question is %d at %s",
			sub.QuestionID, position, pending.QuestionID, pending.Position)
	}

	question, err := s.bank.GetByID(ctx, pending.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	pending, err = s.pending.Resolve(ctx, sub.SessionID, pending.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, storeError("resolve pending question", err)
	}

	timeTaken := sub.TimeTaken
	if timeTaken == nil {
		elapsed := int(s.now().Sub(pending.ServedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		timeTaken = &elapsed
	}

	correct := CheckAnswer(question, sub.Answer)
	move, score, err := s.RecordMove(ctx, sub.SessionID, position, question.ID, correct, timeTaken)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	return domain.AnswerResult{
		Correct:     correct,
		Awarded:     bonusFor(correct, timeTaken),
		Score:       score,
		MoveID:      move.ID,
		Explanation: question.Explanation,
	}, nil
}

// CheckOnly evaluates an answer without touching any session. It refuses questions that are
// pending in one of the caller's open sessions, and the explanation is only returned for a
// correct answer.
func (s *GameService) CheckOnly(ctx context.Context, accountID, questionID int64, answer string) (bool, string, error) {
	question, err := s.bank.GetByID(ctx, questionID)
	if err != nil {
		return false, "", err
	}
	open, err := s.sessions.OpenSessionIDs(ctx, accountID)
	if err != nil {
		return false, "", storeError("list open sessions", err)
	}
	for _, sessionID := range open {
		pending, ok, err := s.pending.Peek(ctx, sessionID)
		if err != nil {
			return false, "", storeError("peek pending question", err)
		}
		if ok && pending.QuestionID == questionID {
			return false, "", domain.ErrQuestionInPlay
		}
	}
	if !CheckAnswer(question, answer) {
		return false, "", nil
	}
	return true, question.Explanation, nil
}

// TopSessions ranks completed sessions by score. n <= 0 uses the configured size.
func (s *GameService) TopSessions(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		n = s.leaderboardSize
	}
	entries, err := s.leaderboard.TopCompleted(ctx, n)
	if err != nil {
		return nil, storeError("top sessions", err)
	}
	return entries, nil
}

// UserStats aggregates the completed sessions of an account.
func (s *GameService) UserStats(ctx context.Context, accountID int64) (domain.UserStats, error) {
	stats, err := s.leaderboard.StatsForAccount(ctx, accountID)
	if err != nil {
		return domain.UserStats{}, storeError("user stats", err)
	}
	return stats, nil
}

// SubscribeLeaderboard returns a channel that receives the current leaderboard and every
// update after a session ends. The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) SubscribeLeaderboard(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	entries, err := s.TopSessions(ctx, 0)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.subscribe(entries)
	return ch, cancel, nil
}

func (s *GameService) publishLeaderboard(ctx context.Context) {
	if s.feed.empty() {
		return
	}
	entries, err := s.TopSessions(ctx, 0)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh leaderboard feed", "error", err)
		return
	}
	s.feed.publish(entries)
}

func (s *GameService) ownedSession(ctx context.Context, sessionID, accountID int64) (domain.GameSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, storeError("get session", err)
	}
	if session.AccountID != accountID {
		return domain.GameSession{}, domain.ErrSessionForbidden
	}
	return session, nil
}

// storeError passes classified errors through and marks anything else internal.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrInternal) || domain.Kind(err) != domain.ErrInternal {
		return err
	}
	return domain.Internal(op, err)
}

type noopMetrics struct{}

func (noopMetrics) SessionStarted() {}
func (noopMetrics) SessionCompleted(int) {}
func (noopMetrics) QuestionServed(domain.Difficulty) {}
func (noopMetrics) AnswerEvaluated(bool, int) {}
