package postgres

import (
	"time"

	"chess-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type accountRow struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// questionRow keeps options as JSONB; they are decoded only here.
type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64    `bun:"id,pk,autoincrement"`
	Prompt        string   `bun:"prompt,notnull"`
	Options       []string `bun:"options,type:jsonb,notnull"`
	CorrectAnswer string   `bun:"correct_answer,notnull"`
	Difficulty    string   `bun:"difficulty,notnull"`
	Explanation   string   `bun:"explanation,notnull"`
	Position      string   `bun:"position,nullzero"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:game_sessions,alias:s"`

	ID        int64      `bun:"id,pk,autoincrement"`
	AccountID int64      `bun:"account_id,notnull"`
	StartTime time.Time  `bun:"start_time,notnull"`
	EndTime   *time.Time `bun:"end_time"`
	Score     int        `bun:"score,notnull"`
	Completed bool       `bun:"completed,notnull"`
}

func (r sessionRow) toDomain() domain.GameSession {
	return domain.GameSession{
		ID:        r.ID,
		AccountID: r.AccountID,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Score:     r.Score,
		Completed: r.Completed,
	}
}

type moveRow struct {
	bun.BaseModel `bun:"table:moves,alias:m"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  int64     `bun:"session_id,notnull"`
	QuestionID int64     `bun:"question_id,notnull"`
	Position   string    `bun:"position,notnull"`
	Correct    bool      `bun:"correct,notnull"`
	TimeTaken  *int      `bun:"time_taken"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (r moveRow) toDomain() domain.Move {
	return domain.Move{
		ID:         r.ID,
		SessionID:  r.SessionID,
		QuestionID: r.QuestionID,
		Position:   domain.Position(r.Position),
		Correct:    r.Correct,
		TimeTaken:  r.TimeTaken,
		CreatedAt:  r.CreatedAt,
	}
}

type leaderboardRow struct {
	Username string    `bun:"username"`
	Score    int       `bun:"score"`
	EndTime  time.Time `bun:"end_time"`
}

type statsRow struct {
	TotalGames   int     `bun:"total_games"`
	TotalScore   int     `bun:"total_score"`
	AverageScore float64 `bun:"average_score"`
	HighestScore int     `bun:"highest_score"`
}
