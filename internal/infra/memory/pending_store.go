package memory

import (
	"context"
	"sync"
	"time"

	"chess-quiz-service/internal/domain"
)

// PendingStore is an in-memory implementation of app.PendingStore. Entries older than
// ttl are treated as abandoned and dropped.
type PendingStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	pending map[int64]domain.PendingQuestion
}

func NewPendingStore(ttl time.Duration) *PendingStore {
	return &PendingStore{
		ttl:     ttl,
		clock:   time.Now,
		pending: make(map[int64]domain.PendingQuestion),
	}
}

// NewPendingStoreWithClock is test-only for deterministic expiry.
func NewPendingStoreWithClock(ttl time.Duration, now func() time.Time) *PendingStore {
	s := NewPendingStore(ttl)
	s.clock = now
	return s
}

func (s *PendingStore) Open(_ context.Context, p domain.PendingQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveLocked(p.SessionID); ok {
		return domain.ErrQuestionPending
	}
	if p.ServedAt.IsZero() {
		p.ServedAt = s.clock()
	}
	s.pending[p.SessionID] = p
	return nil
}

func (s *PendingStore) Peek(_ context.Context, sessionID int64) (domain.PendingQuestion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.liveLocked(sessionID)
	return p, ok, nil
}

func (s *PendingStore) Resolve(_ context.Context, sessionID, questionID int64) (domain.PendingQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.liveLocked(sessionID)
	if !ok || p.QuestionID != questionID {
		return domain.PendingQuestion{}, domain.ErrNoPendingQuestion
	}
	delete(s.pending, sessionID)
	return p, nil
}

func (s *PendingStore) Clear(_ context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, sessionID)
	return nil
}

func (s *PendingStore) liveLocked(sessionID int64) (domain.PendingQuestion, bool) {
	p, ok := s.pending[sessionID]
	if !ok {
		return domain.PendingQuestion{}, false
	}
	if s.ttl > 0 && !p.ServedAt.Add(s.ttl).After(s.clock()) {
		delete(s.pending, sessionID)
		return domain.PendingQuestion{}, false
	}
	return p, true
}
