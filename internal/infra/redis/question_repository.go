package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"chess-quiz-service/internal/domain"
	"chess-quiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogKey holds the cached catalog: HSET questions:catalog {questionID} {json}.
const CatalogKey = "questions:catalog"

// QuestionRepository caches the question catalog in a Redis hash shared by all instances and
// falls back to a loader on cache miss. The decoded catalog is also kept in process until the
// Redis entry it was read from expires.
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	now    func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	local     *memory.Catalog
	expiresAt time.Time // zero means no expiry
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	if c, ok := r.inProcess(); ok {
		return c.Get(id)
	}
	raw, err := r.client.HGet(ctx, CatalogKey, strconv.FormatInt(id, 10)).Result()
	if err == nil {
		return decodeQuestion(raw)
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, fmt.Errorf("hget question %d: %w", id, err)
	}
	// Either the question is unknown or the cache is cold; the catalog settles it.
	c, err := r.catalog(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	return c.Get(id)
}

func (r *QuestionRepository) QuestionsByDifficulty(ctx context.Context, d domain.Difficulty) ([]domain.Question, error) {
	c, err := r.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.ByDifficulty(d), nil
}

func (r *QuestionRepository) QuestionByPosition(ctx context.Context, p domain.Position) (domain.Question, error) {
	c, err := r.catalog(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	return c.ByPosition(p)
}

func (r *QuestionRepository) catalog(ctx context.Context) (*memory.Catalog, error) {
	if c, ok := r.inProcess(); ok {
		return c, nil
	}
	if c, ok, err := r.cached(ctx); err != nil || ok {
		return c, err
	}

	result, err, _ := r.sf.Do(CatalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if c, ok, err := r.cached(ctx); err != nil || ok {
			return c, err
		}

		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		fields := make(map[string]interface{}, len(questions))
		for _, q := range questions {
			encoded, err := encodeQuestion(q)
			if err != nil {
				return nil, err
			}
			fields[strconv.FormatInt(q.ID, 10)] = encoded
		}
		ttl := r.ttlWithJitter()
		if len(fields) > 0 {
			pipe := r.client.TxPipeline()
			pipe.Del(ctx, CatalogKey)
			pipe.HSet(ctx, CatalogKey, fields)
			if ttl > 0 {
				pipe.Expire(ctx, CatalogKey, ttl)
			}
			// A failed cache write only costs the next caller a reload.
			_, _ = pipe.Exec(ctx)
		}
		c := memory.NewCatalog(questions)
		r.keep(c, ttl)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*memory.Catalog), nil
}

// cached reads the Redis hash and its remaining TTL in one round trip.
func (r *QuestionRepository) cached(ctx context.Context) (*memory.Catalog, bool, error) {
	var (
		all *redis.MapStringStringCmd
		ttl *redis.DurationCmd
	)
	if _, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		all = pipe.HGetAll(ctx, CatalogKey)
		ttl = pipe.PTTL(ctx, CatalogKey)
		return nil
	}); err != nil {
		return nil, false, fmt.Errorf("hgetall catalog: %w", err)
	}
	entries := all.Val()
	if len(entries) == 0 {
		return nil, false, nil
	}
	questions := make([]domain.Question, 0, len(entries))
	for _, raw := range entries {
		q, err := decodeQuestion(raw)
		if err != nil {
			return nil, false, err
		}
		questions = append(questions, q)
	}
	// lowest id wins when two questions share a position
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	c := memory.NewCatalog(questions)
	r.keep(c, ttl.Val())
	return c, true, nil
}

func (r *QuestionRepository) inProcess() (*memory.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.local == nil || (!r.expiresAt.IsZero() && !r.expiresAt.After(r.now())) {
		return nil, false
	}
	return r.local, true
}

// keep stores c until ttl elapses. A non-positive ttl (PTTL -1 for a key without expiry) keeps
// it for the repository's own TTL, or forever when that is unset.
func (r *QuestionRepository) keep(c *memory.Catalog, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.ttl
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.local = c
	r.expiresAt = expiresAt
	r.mu.Unlock()
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

type cachedQuestion struct {
	ID            int64    `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Difficulty    string   `json:"difficulty"`
	Explanation   string   `json:"explanation,omitempty"`
	Position      string   `json:"position,omitempty"`
}

func encodeQuestion(q domain.Question) (string, error) {
	b, err := json.Marshal(cachedQuestion{
		ID:            q.ID,
		Prompt:        q.Prompt,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Difficulty:    string(q.Difficulty),
		Explanation:   q.Explanation,
		Position:      string(q.Position),
	})
	if err != nil {
		return "", fmt.Errorf("encode question %d: %w", q.ID, err)
	}
	return string(b), nil
}

func decodeQuestion(raw string) (domain.Question, error) {
	var c cachedQuestion
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Question{}, fmt.Errorf("decode cached question: %w", err)
	}
	return domain.Question{
		ID:            c.ID,
		Prompt:        c.Prompt,
		Options:       c.Options,
		CorrectAnswer: c.CorrectAnswer,
		Difficulty:    domain.Difficulty(c.Difficulty),
		Explanation:   c.Explanation,
		Position:      domain.Position(c.Position),
	}, nil
}
