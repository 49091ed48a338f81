package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the service layer wraps exactly one of these,
// so callers classify with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

var (
	// ErrSessionNotFound is returned when a game session does not exist.
	ErrSessionNotFound = fmt.Errorf("game session %w", ErrNotFound)
	// ErrSessionEnded is returned when ending a session that is already completed.
	ErrSessionEnded = fmt.Errorf("game session already ended: %w", ErrNotFound)
	// ErrSessionForbidden is returned when a session belongs to another account.
	ErrSessionForbidden = fmt.Errorf("game session belongs to another account: %w", ErrForbidden)
	// ErrSessionCompleted rejects moves and question selection on finished sessions.
	ErrSessionCompleted = fmt.Errorf("game session is completed: %w", ErrConflict)
	// ErrQuestionNotFound indicates an unknown question id or an empty difficulty pool.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrAccountNotFound indicates an unknown account id.
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	// ErrAccountExists is returned on duplicate username or email.
	ErrAccountExists = fmt.Errorf("username or email already exists: %w", ErrConflict)
	// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", ErrUnauthorized)
	// ErrQuestionPending rejects a new position while a served question is unanswered.
	ErrQuestionPending = fmt.Errorf("answer the current question before making a move: %w", ErrConflict)
	// ErrQuestionInPlay rejects answer checks for a question the caller still has to answer.
	ErrQuestionInPlay = fmt.Errorf("question is pending in one of your games: %w", ErrConflict)
	// ErrNoPendingQuestion rejects answers when no question has been served.
	ErrNoPendingQuestion = fmt.Errorf("no question pending for this session: %w", ErrConflict)
	// ErrInvalidPosition is returned for labels outside A1..H8.
	ErrInvalidPosition = fmt.Errorf("invalid board position: %w", ErrValidation)
	// ErrInvalidDifficulty is returned for tiers other than easy, medium and hard.
	ErrInvalidDifficulty = fmt.Errorf("invalid difficulty: %w", ErrValidation)
)

// Validation wraps a message as a validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Internal wraps a store or infrastructure failure as an internal error.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

// Kind returns the kind sentinel err wraps, or ErrInternal when it wraps none.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict, ErrInternal} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}
