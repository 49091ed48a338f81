package domain

import (
	"strings"
	"time"
)

// Difficulty partitions the question pool.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists every tier in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty accepts easy, medium or hard in any case.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", ErrInvalidDifficulty
}

// Position is a board-cell label such as "A1". It is a lookup key only.
type Position string

// ParsePosition validates a two-character label (column A-H, row 1-8) and upper-cases it.
func ParsePosition(raw string) (Position, error) {
	p := strings.ToUpper(strings.TrimSpace(raw))
	if len(p) != 2 || p[0] < 'A' || p[0] > 'H' || p[1] < '1' || p[1] > '8' {
		return "", ErrInvalidPosition
	}
	return Position(p), nil
}

// Column returns the column letter.
func (p Position) Column() byte { return p[0] }

// Row returns the row digit.
func (p Position) Row() byte { return p[len(p)-1] }

// AllPositions returns A1..H8 column by column.
func AllPositions() []Position {
	positions := make([]Position, 0, 64)
	for col := 'A'; col <= 'H'; col++ {
		for row := '1'; row <= '8'; row++ {
			positions = append(positions, Position(string(col)+string(row)))
		}
	}
	return positions
}

// Account is a registered player.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuestionKind tells multiple-choice questions from free-form code answers.
type QuestionKind string

const (
	KindChoice QuestionKind = "choice"
	KindCode   QuestionKind = "code"
)

// Question is a seeded quiz item. CorrectAnswer never leaves the service.
type Question struct {
	ID            int64
	Prompt        string
	Options       []string
	CorrectAnswer string
	Difficulty    Difficulty
	Explanation   string
	Position      Position // optional
}

// Kind reports whether the question is answered by picking an option or typing code.
func (q Question) Kind() QuestionKind {
	if len(q.Options) == 0 {
		return KindCode
	}
	return KindChoice
}

// Public strips the correct answer and explanation.
func (q Question) Public() PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    options,
		Kind:       q.Kind(),
		Difficulty: q.Difficulty,
	}
}

// PublicQuestion is the client-facing view of a question.
type PublicQuestion struct {
	ID         int64        `json:"id"`
	Prompt     string       `json:"prompt"`
	Options    []string     `json:"options"`
	Kind       QuestionKind `json:"kind"`
	Difficulty Difficulty   `json:"difficulty"`
	Position   Position     `json:"position,omitempty"`
}

// GameSession is one play-through. EndTime is set iff Completed.
type GameSession struct {
	ID        int64      `json:"id"`
	AccountID int64      `json:"accountId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Score     int        `json:"score"`
	Completed bool       `json:"completed"`
}

// Move is one recorded answer submission.
type Move struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"sessionId"`
	QuestionID int64     `json:"questionId"`
	Position   Position  `json:"position"`
	Correct    bool      `json:"correct"`
	TimeTaken  *int      `json:"timeTaken,omitempty"` // seconds
	CreatedAt  time.Time `json:"createdAt"`
}

// PendingQuestion is the open question of a session in the QuestionPending state.
type PendingQuestion struct {
	SessionID  int64      `json:"sessionId"`
	QuestionID int64      `json:"questionId"`
	Position   Position   `json:"position"`
	Difficulty Difficulty `json:"difficulty"`
	ServedAt   time.Time  `json:"servedAt"`
}

// AnswerSubmission models an answer sent by a client.
type AnswerSubmission struct {
	SessionID  int64
	QuestionID int64
	Position   string
	Answer     string
	TimeTaken  *int
}

// AnswerResult summarizes the outcome of a submission.
type AnswerResult struct {
	Correct     bool   `json:"correct"`
	Awarded     int    `json:"awarded"`
	Score       int    `json:"score"`
	MoveID      int64  `json:"moveId"`
	Explanation string `json:"explanation,omitempty"`
}

// LeaderboardEntry is one ranked completed session.
type LeaderboardEntry struct {
	Username string    `json:"username"`
	Score    int       `json:"score"`
	EndTime  time.Time `json:"endTime"`
}

// Leaderboard is a ranked snapshot.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// UserStats aggregates an account's completed sessions.
type UserStats struct {
	TotalGames   int     `json:"totalGames"`
	TotalScore   int     `json:"totalScore"`
	AverageScore float64 `json:"averageScore"`
	HighestScore int     `json:"highestScore"`
}
