package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"chess-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the full question catalog from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// Catalog is an indexed, read-only view of the question catalog.
type Catalog struct {
	byID         map[int64]domain.Question
	byDifficulty map[domain.Difficulty][]domain.Question
	byPosition   map[domain.Position]domain.Question
}

// NewCatalog indexes questions. The first question seeded for a position wins.
func NewCatalog(questions []domain.Question) *Catalog {
	c := &Catalog{
		byID:         make(map[int64]domain.Question, len(questions)),
		byDifficulty: make(map[domain.Difficulty][]domain.Question),
		byPosition:   make(map[domain.Position]domain.Question),
	}
	for _, q := range questions {
		c.byID[q.ID] = q
		c.byDifficulty[q.Difficulty] = append(c.byDifficulty[q.Difficulty], q)
		if q.Position != "" {
			if _, ok := c.byPosition[q.Position]; !ok {
				c.byPosition[q.Position] = q
			}
		}
	}
	return c
}

func (c *Catalog) Get(id int64) (domain.Question, error) {
	if q, ok := c.byID[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (c *Catalog) ByDifficulty(d domain.Difficulty) []domain.Question {
	pool := c.byDifficulty[d]
	out := make([]domain.Question, len(pool))
	copy(out, pool)
	return out
}

func (c *Catalog) ByPosition(p domain.Position) (domain.Question, error) {
	if q, ok := c.byPosition[p]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// QuestionRepository caches the catalog with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	catalog   *Catalog
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	c, err := r.load(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	return c.Get(id)
}

func (r *QuestionRepository) QuestionsByDifficulty(ctx context.Context, d domain.Difficulty) ([]domain.Question, error) {
	c, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.ByDifficulty(d), nil
}

func (r *QuestionRepository) QuestionByPosition(ctx context.Context, p domain.Position) (domain.Question, error) {
	c, err := r.load(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	return c.ByPosition(p)
}

func (r *QuestionRepository) cached(now time.Time) (*Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.catalog != nil && (r.ttl <= 0 || r.expiresAt.After(now)) {
		return r.catalog, true
	}
	return nil, false
}

func (r *QuestionRepository) load(ctx context.Context) (*Catalog, error) {
	if c, ok := r.cached(r.clock()); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		now := r.clock()
		if c, ok := r.cached(now); ok {
			return c, nil
		}

		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		c := NewCatalog(questions)
		expiresAt := now.Add(r.ttlWithJitter())

		r.mu.Lock()
		r.catalog = c
		r.expiresAt = expiresAt
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Catalog), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed catalog (tests, demos, memory mode).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}
