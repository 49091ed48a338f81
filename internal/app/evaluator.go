package app

import (
	"strings"

	"chess-quiz-service/internal/domain"
)

const (
	// QuickAnswerSeconds is the cutoff below which a correct answer earns QuickBonus.
	QuickAnswerSeconds = 10
	QuickBonus         = 10
	StandardBonus      = 5
)

// DifficultyForPosition maps the row of a position to a tier: row 1 is easy, row 8 is hard,
// everything in between is medium.
func DifficultyForPosition(p domain.Position) domain.Difficulty {
	switch p.Row() {
	case '1':
		return domain.Easy
	case '8':
		return domain.Hard
	default:
		return domain.Medium
	}
}

// CheckAnswer compares case-insensitively against the stored answer. Whitespace is significant.
func CheckAnswer(q domain.Question, submitted string) bool {
	return strings.EqualFold(submitted, q.CorrectAnswer)
}

// ScoreBonus returns the points a submission earns. Difficulty does not affect it.
func ScoreBonus(correct bool, seconds int) int {
	if !correct {
		return 0
	}
	if seconds < QuickAnswerSeconds {
		return QuickBonus
	}
	return StandardBonus
}

// bonusFor treats a missing duration as a slow answer.
func bonusFor(correct bool, timeTaken *int) int {
	if timeTaken == nil {
		return ScoreBonus(correct, QuickAnswerSeconds)
	}
	return ScoreBonus(correct, *timeTaken)
}
