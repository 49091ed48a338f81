package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chess-quiz-service/internal/app"
	"chess-quiz-service/internal/domain"
	"chess-quiz-service/internal/infra/memory"
)

type fixture struct {
	service *app.GameService
	store   *memory.Store
	now     time.Time
	mu      sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) account(t *testing.T, username string) int64 {
	t.Helper()
	account, err := f.store.CreateAccount(context.Background(), domain.Account{Username: username, Email: username + "@example.com"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account.ID
}

// newFixture picks the first question of every pool: A1 -> id 1, medium -> id 3, hard -> id 8.
func newFixture(opts ...app.Option) *fixture {
	f := &fixture{store: memory.NewStore(), now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	bank := app.NewQuestionBankWithPicker(
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(memory.SeedQuestions()), 0),
		func(int) int { return 0 },
	)
	opts = append([]app.Option{app.WithClock(f.clock)}, opts...)
	f.service = app.NewGameService(f.store, f.store, bank, memory.NewPendingStore(0), opts...)
	return f
}

func intPtr(v int) *int { return &v }

func TestStartSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")

	first, err := f.service.StartSession(ctx, alice)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := f.service.StartSession(ctx, alice)
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct sessions")
	}
	if first.Score != 0 || first.Completed || first.EndTime != nil || !first.StartTime.Equal(f.now) {
		t.Fatalf("unexpected new session %+v", first)
	}
	if _, err := f.service.StartSession(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown account rejected, got %v", err)
	}
}

func TestQuestionCycleScoresAnswers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	q, err := f.service.SelectQuestion(ctx, alice, session.ID, "a1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.Difficulty != domain.Easy || q.Position != "A1" || q.Kind != domain.KindChoice {
		t.Fatalf("unexpected question %+v", q)
	}

	res, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
		SessionID: session.ID, QuestionID: q.ID, Position: "A1", Answer: "0 1 2 3 4", TimeTaken: intPtr(4),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct || res.Awarded != 10 || res.Score != 10 || res.Explanation == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	q, err = f.service.SelectQuestion(ctx, alice, session.ID, "D4")
	if err != nil {
		t.Fatalf("select medium: %v", err)
	}
	res, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
		SessionID: session.ID, QuestionID: q.ID, Position: "d4", Answer: "1 3 5 7 9", TimeTaken: intPtr(12),
	})
	if err != nil {
		t.Fatalf("submit slow: %v", err)
	}
	if res.Awarded != 5 || res.Score != 15 {
		t.Fatalf("expected slow bonus, got %+v", res)
	}

	q, _ = f.service.SelectQuestion(ctx, alice, session.ID, "H8")
	res, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
		SessionID: session.ID, QuestionID: q.ID, Position: "H8", Answer: "0 0, 1 1, 2 2", TimeTaken: intPtr(2),
	})
	if err != nil {
		t.Fatalf("submit wrong: %v", err)
	}
	if res.Correct || res.Awarded != 0 || res.Score != 15 {
		t.Fatalf("expected no points for wrong answer, got %+v", res)
	}

	moves, err := f.service.ListMoves(ctx, session.ID, alice)
	if err != nil {
		t.Fatalf("list moves: %v", err)
	}
	if len(moves) != 3 || moves[0].Position != "A1" || moves[2].Correct {
		t.Fatalf("unexpected moves %+v", moves)
	}
}

func TestSelectQuestionWhilePendingIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	q, err := f.service.SelectQuestion(ctx, alice, session.ID, "B3")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := f.service.SelectQuestion(ctx, alice, session.ID, "C3"); !errors.Is(err, domain.ErrQuestionPending) {
		t.Fatalf("expected pending conflict, got %v", err)
	}

	// a wrong answer still returns the session to idle
	if _, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
		SessionID: session.ID, QuestionID: q.ID, Position: "B3", Answer: "nope", TimeTaken: intPtr(1),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.SelectQuestion(ctx, alice, session.ID, "C3"); err != nil {
		t.Fatalf("expected idle after answer, got %v", err)
	}
}

func TestSubmitAnswerRequiresMatchingPendingQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	_, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: 1, Position: "A1", Answer: "x"})
	if !errors.Is(err, domain.ErrNoPendingQuestion) {
		t.Fatalf("expected no pending question, got %v", err)
	}

	q, _ := f.service.SelectQuestion(ctx, alice, session.ID, "A1")
	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: q.ID + 1, Position: "A1", Answer: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected mismatched question rejected, got %v", err)
	}
	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: q.ID, Position: "B1", Answer: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected mismatched position rejected, got %v", err)
	}
	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: q.ID, Position: "A1", Answer: "x", TimeTaken: intPtr(-1)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected negative time rejected, got %v", err)
	}
}

func TestSubmitAnswerDerivesTimeTaken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	q, _ := f.service.SelectQuestion(ctx, alice, session.ID, "A1")
	f.advance(15 * time.Second)
	res, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: q.ID, Position: "A1", Answer: "0 1 2 3 4"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Awarded != 5 {
		t.Fatalf("expected slow bonus from served time, got %+v", res)
	}
	moves, _ := f.service.ListMoves(ctx, session.ID, alice)
	if moves[0].TimeTaken == nil || *moves[0].TimeTaken != 15 {
		t.Fatalf("expected derived time 15s, got %+v", moves[0].TimeTaken)
	}
}

func TestSelectQuestionValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")
	session, _ := f.service.StartSession(ctx, alice)

	for _, bad := range []string{"", "I1", "A9", "A0", "AA", "A10"} {
		if _, err := f.service.SelectQuestion(ctx, alice, session.ID, bad); !errors.Is(err, domain.ErrInvalidPosition) {
			t.Fatalf("%q: expected invalid position, got %v", bad, err)
		}
	}
	if _, err := f.service.SelectQuestion(ctx, bob, session.ID, "A1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.service.SelectQuestion(ctx, alice, 999, "A1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordMove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	if _, score, err := f.service.RecordMove(ctx, session.ID, "C4", 3, true, intPtr(3)); err != nil || score != 10 {
		t.Fatalf("quick move: score=%d err=%v", score, err)
	}
	if _, score, err := f.service.RecordMove(ctx, session.ID, "C5", 3, true, nil); err != nil || score != 15 {
		t.Fatalf("untimed move: score=%d err=%v", score, err)
	}
	if _, score, err := f.service.RecordMove(ctx, session.ID, "C6", 3, false, intPtr(1)); err != nil || score != 15 {
		t.Fatalf("wrong move: score=%d err=%v", score, err)
	}
	if _, _, err := f.service.RecordMove(ctx, 999, "C6", 3, true, intPtr(1)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := f.service.EndSession(ctx, session.ID, alice, 15); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, _, err := f.service.RecordMove(ctx, session.ID, "C7", 3, true, intPtr(1)); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed session rejected, got %v", err)
	}
}

func TestRecordMoveConcurrentScoresAddUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(quick bool) {
			defer wg.Done()
			secs := 20
			if quick {
				secs = 1
			}
			if _, _, err := f.service.RecordMove(ctx, session.ID, "E5", 3, true, &secs); err != nil {
				t.Errorf("record: %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	got, _ := f.store.GetSession(ctx, session.ID)
	if want := 13*10 + 12*5; got.Score != want {
		t.Fatalf("expected %d, got %d", want, got.Score)
	}
}

func TestEndSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")
	session, _ := f.service.StartSession(ctx, alice)
	_, _, _ = f.service.RecordMove(ctx, session.ID, "A1", 1, true, intPtr(2))

	if _, err := f.service.EndSession(ctx, session.ID, bob, 10); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.service.EndSession(ctx, 999, alice, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.service.EndSession(ctx, session.ID, alice, -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected negative score rejected, got %v", err)
	}

	f.advance(time.Minute)
	ended, err := f.service.EndSession(ctx, session.ID, alice, 500)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !ended.Completed || ended.EndTime == nil || !ended.EndTime.Equal(f.now) {
		t.Fatalf("unexpected ended session %+v", ended)
	}
	if ended.Score != 10 {
		t.Fatalf("expected server score 10 kept, got %d", ended.Score)
	}

	if _, err := f.service.EndSession(ctx, session.ID, alice, 10); !errors.Is(err, domain.ErrSessionEnded) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected already ended, got %v", err)
	}
	if _, err := f.service.SelectQuestion(ctx, alice, session.ID, "A1"); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed session rejected, got %v", err)
	}
}

func TestEndSessionTrustingClientScore(t *testing.T) {
	f := newFixture(app.WithClientScore(true))
	ctx := context.Background()
	alice := f.account(t, "alice")

	session, _ := f.service.StartSession(ctx, alice)
	_, _, _ = f.service.RecordMove(ctx, session.ID, "A1", 1, true, intPtr(2))
	ended, err := f.service.EndSession(ctx, session.ID, alice, 40)
	if err != nil || ended.Score != 40 {
		t.Fatalf("expected client score 40, got %d (%v)", ended.Score, err)
	}

	session, _ = f.service.StartSession(ctx, alice)
	_, _, _ = f.service.RecordMove(ctx, session.ID, "A1", 1, true, intPtr(2))
	ended, err = f.service.EndSession(ctx, session.ID, alice, 3)
	if err != nil || ended.Score != 10 {
		t.Fatalf("expected score never to drop below 10, got %d (%v)", ended.Score, err)
	}
}

func TestEndSessionClearsPendingQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	q, _ := f.service.SelectQuestion(ctx, alice, session.ID, "A1")
	if _, err := f.service.EndSession(ctx, session.ID, alice, 0); err != nil {
		t.Fatalf("end: %v", err)
	}
	_, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: q.ID, Position: "A1", Answer: "0 1 2 3 4"})
	if !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed session rejected, got %v", err)
	}
}

func TestEndSessionConcurrentCompletesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	session, _ := f.service.StartSession(ctx, alice)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.EndSession(ctx, session.ID, alice, 0); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one completion, got %d", wins)
	}
}

func TestTopSessionsAndStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")

	play := func(accountID int64, corrects int) {
		session, _ := f.service.StartSession(ctx, accountID)
		for i := 0; i < corrects; i++ {
			_, _, _ = f.service.RecordMove(ctx, session.ID, "A1", 1, true, intPtr(1))
		}
		f.advance(time.Second)
		if _, err := f.service.EndSession(ctx, session.ID, accountID, 0); err != nil {
			t.Fatalf("end: %v", err)
		}
	}
	for i := 0; i < 12; i++ {
		play(alice, i)
	}
	play(bob, 11)
	_, _ = f.service.StartSession(ctx, bob) // open session is ignored

	top, err := f.service.TopSessions(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != app.DefaultLeaderboardSize {
		t.Fatalf("expected %d entries, got %d", app.DefaultLeaderboardSize, len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i-1].Score < top[i].Score {
			t.Fatalf("leaderboard not sorted at %d: %+v", i, top)
		}
	}
	// alice reached 110 before bob did
	if top[0].Username != "alice" || top[0].Score != 110 || top[1].Username != "bob" || top[1].Score != 110 {
		t.Fatalf("unexpected leaders %+v", top[:2])
	}

	stats, err := f.service.UserStats(ctx, alice)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalGames != 12 || stats.TotalScore != 660 || stats.HighestScore != 110 || stats.AverageScore != 55 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	empty, _ := f.service.UserStats(ctx, f.account(t, "carol"))
	if empty != (domain.UserStats{}) {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}

func TestSubscribeLeaderboardReceivesUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")

	ch, cancel, err := f.service.SubscribeLeaderboard(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", initial.Entries)
	}

	session, _ := f.service.StartSession(ctx, alice)
	_, _, _ = f.service.RecordMove(ctx, session.ID, "A1", 1, true, intPtr(1))
	if _, err := f.service.EndSession(ctx, session.ID, alice, 0); err != nil {
		t.Fatalf("end: %v", err)
	}

	select {
	case update := <-ch:
		if len(update.Entries) != 1 || update.Entries[0].Score != 10 {
			t.Fatalf("expected updated score 10, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for leaderboard update")
	}
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")

	ch, cancel, err := f.service.SubscribeLeaderboard(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	for i := 0; i < 20; i++ {
		session, _ := f.service.StartSession(ctx, alice)
		_, _, _ = f.service.RecordMove(ctx, session.ID, "A1", 1, true, intPtr(1))
		if _, err := f.service.EndSession(ctx, session.ID, alice, 0); err != nil {
			t.Fatalf("end: %v", err)
		}
	}

	var last domain.Leaderboard
	for len(ch) > 0 {
		last = <-ch
	}
	if len(last.Entries) != app.DefaultLeaderboardSize {
		t.Fatalf("expected latest snapshot to be retained, got %d entries", len(last.Entries))
	}
}

func TestCheckOnlyRecordsNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")

	correct, explanation, err := f.service.CheckOnly(ctx, alice, 4, "BREAK")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !correct || explanation == "" {
		t.Fatalf("expected correct with explanation, got %v %q", correct, explanation)
	}
	if _, _, err := f.service.CheckOnly(ctx, alice, 999, "x"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	stats, err := f.service.UserStats(ctx, alice)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalGames != 0 {
		t.Fatalf("expected no games, got %+v", stats)
	}
}

func TestCheckOnlyHidesExplanationForWrongAnswers(t *testing.T) {
	f := newFixture()
	alice := f.account(t, "alice")

	correct, explanation, err := f.service.CheckOnly(context.Background(), alice, 1, "1 2 3 4 5")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if correct || explanation != "" {
		t.Fatalf("expected wrong answer without explanation, got %v %q", correct, explanation)
	}
}

func TestCheckOnlyRefusesPendingQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")

	session, err := f.service.StartSession(ctx, alice)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	served, err := f.service.SelectQuestion(ctx, alice, session.ID, "A1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	if _, _, err := f.service.CheckOnly(ctx, alice, served.ID, "0 1 2 3 4"); !errors.Is(err, domain.ErrQuestionInPlay) {
		t.Fatalf("expected question in play, got %v", err)
	}
	if !errors.Is(domain.ErrQuestionInPlay, domain.ErrConflict) {
		t.Fatalf("expected conflict kind")
	}
	if _, _, err := f.service.CheckOnly(ctx, bob, served.ID, "0 1 2 3 4"); err != nil {
		t.Fatalf("other accounts may check: %v", err)
	}

	if _, err := f.service.EndSession(ctx, session.ID, alice, 0); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, _, err := f.service.CheckOnly(ctx, alice, served.ID, "0 1 2 3 4"); err != nil {
		t.Fatalf("expected check after the game ended, got %v", err)
	}
}
