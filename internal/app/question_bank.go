package app

import (
	"context"
	"math/rand"

	"chess-quiz-service/internal/domain"
)

// QuestionRepository loads quiz content (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	QuestionsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Question, error)
	QuestionByPosition(ctx context.Context, position domain.Position) (domain.Question, error)
}

// QuestionBank is the read-only lookup surface over the seeded catalog.
type QuestionBank struct {
	repo QuestionRepository
	pick func(n int) int
}

func NewQuestionBank(repo QuestionRepository) *QuestionBank {
	return &QuestionBank{repo: repo, pick: rand.Intn}
}

// NewQuestionBankWithPicker is test-only for deterministic selection.
func NewQuestionBankWithPicker(repo QuestionRepository, pick func(n int) int) *QuestionBank {
	return &QuestionBank{repo: repo, pick: pick}
}

// GetByID returns a question by id.
func (b *QuestionBank) GetByID(ctx context.Context, id int64) (domain.Question, error) {
	q, err := b.repo.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, storeError("get question", err)
	}
	return q, nil
}

// GetByPosition returns the question seeded for a position, if any.
func (b *QuestionBank) GetByPosition(ctx context.Context, position domain.Position) (domain.Question, error) {
	q, err := b.repo.QuestionByPosition(ctx, position)
	if err != nil {
		return domain.Question{}, storeError("get question by position", err)
	}
	return q, nil
}

// GetRandomByDifficulty picks uniformly among the questions of a tier.
func (b *QuestionBank) GetRandomByDifficulty(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	pool, err := b.repo.QuestionsByDifficulty(ctx, difficulty)
	if err != nil {
		return domain.Question{}, storeError("list questions", err)
	}
	if len(pool) == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return pool[b.pick(len(pool))], nil
}
