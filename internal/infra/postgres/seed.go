package postgres

import (
	"context"
	"fmt"

	"chess-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// SeedQuestions inserts questions when the table is empty and reports how many were added.
// IDs are assigned by the database.
func SeedQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) (int, error) {
	count, err := db.NewSelect().Model((*questionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	if count > 0 || len(questions) == 0 {
		return 0, nil
	}

	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		rows = append(rows, questionRow{
			Prompt:        q.Prompt,
			Options:       options,
			CorrectAnswer: q.CorrectAnswer,
			Difficulty:    string(q.Difficulty),
			Explanation:   q.Explanation,
			Position:      string(q.Position),
		})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert questions: %w", err)
	}
	return len(rows), nil
}
