package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chess-quiz-service/internal/app"
	"chess-quiz-service/internal/auth"
	"chess-quiz-service/internal/domain"
	"chess-quiz-service/internal/infra/memory"
	"chess-quiz-service/internal/infra/postgres"
	pgmigrations "chess-quiz-service/internal/infra/postgres/migrations"
	infraredis "chess-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
)

type stack struct {
	games *app.GameService
	auth  *auth.Service
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := migrateAndSeed(t, ctx, pgURL)
	t.Cleanup(func() { db.Close() })

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	store := postgres.NewStore(db)
	questions := infraredis.NewQuestionRepository(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute)
	bank := app.NewQuestionBankWithPicker(questions, func(int) int { return 0 })
	pending := infraredis.NewPendingStore(redisClient, 5*time.Minute)

	authService, err := auth.NewService(store, auth.Config{Secret: []byte("integration"), BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return &stack{
		games: app.NewGameService(store, store, bank, pending),
		auth:  authService,
	}
}

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	alice, err := s.auth.Register(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.auth.Register(ctx, "Alice2", "ALICE@example.com", "secret123"); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}
	token, _, err := s.auth.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id, err := s.auth.VerifyToken(token); err != nil || id != alice.ID {
		t.Fatalf("verify token: id=%d err=%v", id, err)
	}

	session, err := s.games.StartSession(ctx, alice.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	served, err := s.games.SelectQuestion(ctx, alice.ID, session.ID, "A1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if served.Difficulty != domain.Easy {
		t.Fatalf("expected easy question on row 1, got %s", served.Difficulty)
	}
	if _, err := s.games.SelectQuestion(ctx, alice.ID, session.ID, "B1"); !errors.Is(err, domain.ErrQuestionPending) {
		t.Fatalf("expected pending question to block, got %v", err)
	}

	question, err := s.games.Bank().GetByID(ctx, served.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	quick := 2
	result, err := s.games.SubmitAnswer(ctx, alice.ID, domain.AnswerSubmission{
		SessionID:  session.ID,
		QuestionID: served.ID,
		Position:   "A1",
		Answer:     strings.ToUpper(question.CorrectAnswer),
		TimeTaken:  &quick,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.Score != app.QuickBonus {
		t.Fatalf("expected quick correct answer, got %+v", result)
	}

	moves, err := s.games.ListMoves(ctx, session.ID, alice.ID)
	if err != nil {
		t.Fatalf("moves: %v", err)
	}
	if len(moves) != 1 || moves[0].Position != "A1" || !moves[0].Correct {
		t.Fatalf("unexpected moves: %+v", moves)
	}

	ended, err := s.games.EndSession(ctx, session.ID, alice.ID, 999)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !ended.Completed || ended.Score != app.QuickBonus || ended.EndTime == nil {
		t.Fatalf("unexpected ended session: %+v", ended)
	}
	if _, err := s.games.EndSession(ctx, session.ID, alice.ID, 0); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected second end to fail, got %v", err)
	}
	if _, _, err := s.games.RecordMove(ctx, session.ID, "C3", served.ID, true, nil); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected move on completed session to fail, got %v", err)
	}

	top, err := s.games.TopSessions(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 1 || top[0].Username != "alice" || top[0].Score != app.QuickBonus {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
	stats, err := s.games.UserStats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalGames != 1 || stats.HighestScore != app.QuickBonus {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestConcurrentSelectionOpensOneQuestion(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	bob, err := s.auth.Register(ctx, "bob", "bob@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := s.games.StartSession(ctx, bob.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		served  int
		blocked int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.games.SelectQuestion(ctx, bob.ID, session.ID, "D4")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				served++
			case errors.Is(err, domain.ErrQuestionPending):
				blocked++
			default:
				t.Errorf("select: %v", err)
			}
		}()
	}
	wg.Wait()
	if served != 1 || blocked != callers-1 {
		t.Fatalf("expected exactly one served question, got served=%d blocked=%d", served, blocked)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seeded, err := postgres.SeedQuestions(ctx, db, memory.SeedQuestions())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded != len(memory.SeedQuestions()) {
		t.Fatalf("expected %d seeded questions, got %d", len(memory.SeedQuestions()), seeded)
	}
	if again, err := postgres.SeedQuestions(ctx, db, memory.SeedQuestions()); err != nil || again != 0 {
		t.Fatalf("expected reseeding to be a no-op, got %d, %v", again, err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "chess", "POSTGRES_PASSWORD": "chesspass", "POSTGRES_DB": "chessdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://chess:chesspass@%s:%s/chessdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
