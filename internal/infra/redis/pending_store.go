package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chess-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// PendingStore keeps each session's open question in Redis so any instance can resolve it.
// Key layout: game:{sessionID}:pending -> JSON PendingQuestion, expiring after ttl.
type PendingStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewPendingStore(client *redis.Client, ttl time.Duration) *PendingStore {
	return &PendingStore{client: client, ttl: ttl, now: time.Now}
}

func (s *PendingStore) Open(ctx context.Context, p domain.PendingQuestion) error {
	if p.ServedAt.IsZero() {
		p.ServedAt = s.now()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending question: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(p.SessionID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("setnx pending question: %w", err)
	}
	if !ok {
		return domain.ErrQuestionPending
	}
	return nil
}

func (s *PendingStore) Peek(ctx context.Context, sessionID int64) (domain.PendingQuestion, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingQuestion{}, false, nil
	}
	if err != nil {
		return domain.PendingQuestion{}, false, fmt.Errorf("get pending question: %w", err)
	}
	p, err := decodePending(raw)
	if err != nil {
		return domain.PendingQuestion{}, false, err
	}
	return p, true, nil
}

// Resolve deletes the pending entry only if it still names questionID. WATCH makes the
// compare-and-delete atomic; losing the race means another request resolved it first.
func (s *PendingStore) Resolve(ctx context.Context, sessionID, questionID int64) (domain.PendingQuestion, error) {
	key := s.key(sessionID)
	var resolved domain.PendingQuestion

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNoPendingQuestion
		}
		if err != nil {
			return fmt.Errorf("get pending question: %w", err)
		}
		p, err := decodePending(raw)
		if err != nil {
			return err
		}
		if p.QuestionID != questionID {
			return domain.ErrNoPendingQuestion
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		}); err != nil {
			return err
		}
		resolved = p
		return nil
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.PendingQuestion{}, domain.ErrNoPendingQuestion
	case err != nil:
		return domain.PendingQuestion{}, err
	}
	return resolved, nil
}

func (s *PendingStore) Clear(ctx context.Context, sessionID int64) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear pending question: %w", err)
	}
	return nil
}

func (s *PendingStore) key(sessionID int64) string {
	return "game:" + strconv.FormatInt(sessionID, 10) + ":pending"
}

func decodePending(raw []byte) (domain.PendingQuestion, error) {
	var p domain.PendingQuestion
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.PendingQuestion{}, fmt.Errorf("decode pending question: %w", err)
	}
	return p, nil
}
