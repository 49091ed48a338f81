package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chess-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store implements the account, session and leaderboard repositories on Postgres via bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	row := accountRow{
		Username:     account.Username,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrAccountExists
		}
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	var row accountRow
	err := s.db.NewSelect().Model(&row).Where("username = ?", username).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("select account: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AccountByID(ctx context.Context, id int64) (domain.Account, error) {
	var row accountRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("select account: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateSession(ctx context.Context, accountID int64, startedAt time.Time) (domain.GameSession, error) {
	row := sessionRow{AccountID: accountID, StartTime: startedAt}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		if isForeignKeyViolation(err) {
			return domain.GameSession{}, domain.ErrAccountNotFound
		}
		return domain.GameSession{}, fmt.Errorf("insert session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetSession(ctx context.Context, id int64) (domain.GameSession, error) {
	var row sessionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("select session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) OpenSessionIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*sessionRow)(nil)).
		Column("id").
		Where("account_id = ?", accountID).
		Where("completed = FALSE").
		Order("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select open sessions: %w", err)
	}
	return ids, nil
}

// CompleteSession is a single conditional UPDATE, so concurrent end requests complete a
// session at most once.
func (s *Store) CompleteSession(ctx context.Context, id, accountID int64, endedAt time.Time, finalScore *int) (domain.GameSession, error) {
	score := -1
	if finalScore != nil {
		score = *finalScore
	}
	var row sessionRow
	err := s.db.NewRaw(`
		UPDATE game_sessions
		SET completed = TRUE, end_time = ?, score = GREATEST(score, ?)
		WHERE id = ? AND account_id = ? AND completed = FALSE
		RETURNING id, account_id, start_time, end_time, score, completed`,
		endedAt, score, id, accountID,
	).Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionEnded
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("complete session: %w", err)
	}
	return row.toDomain(), nil
}

// AppendMove bumps the score in place (score = score + n) and inserts the move in one transaction.
func (s *Store) AppendMove(ctx context.Context, move domain.Move, points int) (domain.Move, int, error) {
	var (
		score int
		row   moveRow
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewRaw(
			`UPDATE game_sessions SET score = score + ? WHERE id = ? AND completed = FALSE RETURNING score`,
			points, move.SessionID,
		).Scan(ctx, &score)
		if errors.Is(err, sql.ErrNoRows) {
			exists, err := tx.NewSelect().Model((*sessionRow)(nil)).Where("id = ?", move.SessionID).Exists(ctx)
			if err != nil {
				return fmt.Errorf("check session: %w", err)
			}
			if exists {
				return domain.ErrSessionCompleted
			}
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("update score: %w", err)
		}

		row = moveRow{
			SessionID:  move.SessionID,
			QuestionID: move.QuestionID,
			Position:   string(move.Position),
			Correct:    move.Correct,
			TimeTaken:  move.TimeTaken,
			CreatedAt:  move.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert move: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Move{}, 0, err
	}
	return row.toDomain(), score, nil
}

func (s *Store) ListMoves(ctx context.Context, sessionID int64) ([]domain.Move, error) {
	var rows []moveRow
	if err := s.db.NewSelect().Model(&rows).Where("session_id = ?", sessionID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select moves: %w", err)
	}
	moves := make([]domain.Move, 0, len(rows))
	for _, row := range rows {
		moves = append(moves, row.toDomain())
	}
	return moves, nil
}

func (s *Store) TopCompleted(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.NewRaw(`
		SELECT a.username, s.score, s.end_time
		FROM game_sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.completed
		ORDER BY s.score DESC, s.end_time ASC, s.id ASC
		LIMIT ?`, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LeaderboardEntry{Username: row.Username, Score: row.Score, EndTime: row.EndTime})
	}
	return entries, nil
}

func (s *Store) StatsForAccount(ctx context.Context, accountID int64) (domain.UserStats, error) {
	var row statsRow
	err := s.db.NewRaw(`
		SELECT
			COUNT(*) AS total_games,
			COALESCE(SUM(score), 0) AS total_score,
			COALESCE(AVG(score), 0)::float8 AS average_score,
			COALESCE(MAX(score), 0) AS highest_score
		FROM game_sessions
		WHERE account_id = ? AND completed`, accountID,
	).Scan(ctx, &row)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("select stats: %w", err)
	}
	return domain.UserStats(row), nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23503"
}
