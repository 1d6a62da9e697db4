package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"escape-room-service/internal/app"
	"escape-room-service/internal/domain"
	"escape-room-service/internal/infra/memory"
)

var fixedNow = time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

func TestSubmitCorrectAnswerCompletesSequence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	service := newTestService(store, singleQuestion())

	game := enter(t, service)
	game.OpenQuestion()
	game.SetDraft("4")

	out, err := game.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Correct || out.Index != 1 || !out.Complete {
		t.Fatalf("expected correct and complete at index 1, got %+v", out)
	}
	if out.MarkerVisible {
		t.Fatalf("marker should be hidden after completion")
	}
	if out.Navigate == nil || out.Navigate.Path != domain.PathCompleted || !out.Navigate.Replace {
		t.Fatalf("expected replace navigation to completion view, got %+v", out.Navigate)
	}

	state := game.Snapshot()
	if state.ResponseDraft != "" || state.QuestionOpen || !state.SequenceComplete || !state.Finalized {
		t.Fatalf("unexpected state after completion %+v", state)
	}

	user, _, _ := store.Get(ctx, domain.CollectionUsers, "u1")
	if user[domain.FieldScore] != 1 || user[domain.FieldUserAgent] != "test-agent" || user[domain.FieldCompletedAt] != fixedNow {
		t.Fatalf("unexpected user record %+v", user)
	}
	board, _, _ := store.Get(ctx, domain.CollectionLeaderboard, "u1")
	if board[domain.FieldScore] != 1 || board[domain.FieldName] != "Alice" || board[domain.FieldTimestamp] != fixedNow {
		t.Fatalf("unexpected leaderboard record %+v", board)
	}
}

func TestSubmitIncorrectAnswerKeepsState(t *testing.T) {
	service := newTestService(memory.NewDocumentStore(), singleQuestion())
	game := enter(t, service)
	game.OpenQuestion()
	game.SetDraft("3")

	out, err := game.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Correct || out.Index != 0 || out.Complete {
		t.Fatalf("expected incorrect at index 0, got %+v", out)
	}
	state := game.Snapshot()
	if state.ResponseDraft != "3" || !state.QuestionOpen || state.Score != 0 {
		t.Fatalf("state changed on wrong answer %+v", state)
	}
}

func TestSubmitMovesMarker(t *testing.T) {
	set := domain.QuestionSet{ID: "escape-1", Questions: []domain.Question{
		{Prompt: "first", Solution: "a"},
		{Prompt: "second", Solution: "b", Points: 3},
	}}
	service := newTestService(memory.NewDocumentStore(), set)
	game := enter(t, service)

	if pos, ok := game.Position(); !ok || pos != app.DefaultPositions[0] {
		t.Fatalf("expected first position, got %+v ok=%v", pos, ok)
	}

	game.SetDraft("a")
	out, err := game.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.MarkerVisible || out.Position != app.DefaultPositions[1] || out.Navigate != nil {
		t.Fatalf("expected marker on second character, got %+v", out)
	}

	q, ok := game.OpenQuestion()
	if !ok || q.Prompt != "second" {
		t.Fatalf("expected second question, got %+v ok=%v", q, ok)
	}
	game.SetDraft("b")
	out, err = game.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if out.Score != 4 {
		t.Fatalf("expected weighted score 4, got %d", out.Score)
	}
	if _, err := game.Submit(context.Background()); !errors.Is(err, domain.ErrSequenceComplete) {
		t.Fatalf("expected sequence complete error, got %v", err)
	}
	if _, ok := game.OpenQuestion(); ok {
		t.Fatalf("no question should open after completion")
	}
}

func TestMarkerHiddenAfterShortSetCompletes(t *testing.T) {
	set := domain.QuestionSet{ID: "escape-1", Questions: []domain.Question{
		{Prompt: "one", Solution: "a"},
		{Prompt: "two", Solution: "b"},
		{Prompt: "three", Solution: "c"},
	}}
	if len(set.Questions) >= len(app.DefaultPositions) {
		t.Fatalf("set must be shorter than the position table")
	}
	service := newTestService(memory.NewDocumentStore(), set)
	game := enter(t, service)

	var out app.Outcome
	for i, answer := range []string{"a", "b", "c"} {
		game.SetDraft(answer)
		var err error
		out, err = game.Submit(context.Background())
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if !out.Complete || out.Index != 3 {
		t.Fatalf("expected completion at index 3, got %+v", out)
	}
	if out.MarkerVisible || out.Position != (domain.Position{}) {
		t.Fatalf("marker should be hidden after completion, got %+v", out)
	}
	if pos, visible := game.Position(); visible || pos != (domain.Position{}) {
		t.Fatalf("expected hidden marker, got %+v visible=%v", pos, visible)
	}
}

func TestFinalizeFailureBlocksNavigationAndRetries(t *testing.T) {
	store := &flakyStore{DocumentStore: memory.NewDocumentStore(), failWrites: true}
	service := newTestService(store, singleQuestion())
	game := enter(t, service)
	game.SetDraft("4")

	out, err := game.Submit(context.Background())
	if !errors.Is(err, domain.ErrRemoteWrite) || !app.IsRetryable(err) {
		t.Fatalf("expected retryable write error, got %v", err)
	}
	if out.Navigate != nil {
		t.Fatalf("must not navigate on failed finalize")
	}
	if state := game.Snapshot(); !state.SequenceComplete || state.Finalized || state.Score != 1 {
		t.Fatalf("score must survive a failed finalize: %+v", state)
	}

	store.setFailWrites(false)
	nav, err := game.RetryFinalize(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if nav.Path != domain.PathCompleted {
		t.Fatalf("expected completion navigation, got %+v", nav)
	}
	user, found, _ := store.Get(context.Background(), domain.CollectionUsers, "u1")
	if !found || user[domain.FieldScore] != 1 {
		t.Fatalf("expected persisted score after retry, got %+v", user)
	}
}

func TestRetryFinalizeBeforeCompletion(t *testing.T) {
	service := newTestService(memory.NewDocumentStore(), singleQuestion())
	game := enter(t, service)
	if _, err := game.RetryFinalize(context.Background()); !errors.Is(err, domain.ErrNotComplete) {
		t.Fatalf("expected not complete, got %v", err)
	}
}

func TestEnterRedirects(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{DocumentStore: memory.NewDocumentStore()}
	service := newTestService(store, singleQuestion())

	result, game, err := service.Enter(ctx, domain.AuthState{}, "agent")
	if err != nil || game != nil || result.Status != app.GuardPending {
		t.Fatalf("expected pending, got %v game=%v err=%v", result.Status, game, err)
	}

	result, game, err = service.Enter(ctx, domain.AuthState{Resolved: true}, "agent")
	if err != nil || game != nil || result.Status != app.GuardUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", result.Status)
	}
	if nav, ok := result.Redirect(); !ok || nav.Path != domain.PathEntry || !nav.Replace {
		t.Fatalf("expected replace redirect to entry, got %+v", nav)
	}
	if store.reads() != 0 {
		t.Fatalf("unauthenticated callers must not reach the store, got %d reads", store.reads())
	}

	_ = store.Set(ctx, domain.CollectionUsers, "u1", domain.Document{domain.FieldStartedAt: fixedNow}, true)
	result, game, err = service.Enter(ctx, signedIn(), "agent")
	if err != nil || game != nil || result.Status != app.GuardAlreadyCompleted {
		t.Fatalf("expected already completed, got %v err=%v", result.Status, err)
	}
	if nav, ok := result.Redirect(); !ok || nav.Path != domain.PathCompleted {
		t.Fatalf("expected redirect to completion view, got %+v", nav)
	}
}

func TestEnterBlocksOnReadFailure(t *testing.T) {
	store := &flakyStore{DocumentStore: memory.NewDocumentStore(), failReads: true}
	service := newTestService(store, singleQuestion())

	_, game, err := service.Enter(context.Background(), signedIn(), "agent")
	if !errors.Is(err, domain.ErrRemoteRead) || game != nil {
		t.Fatalf("expected read failure to block entry, got game=%v err=%v", game, err)
	}
}

func TestEnterRejectsEmptyQuestionSet(t *testing.T) {
	service := newTestService(memory.NewDocumentStore(), domain.QuestionSet{ID: "escape-1"})
	_, _, err := service.Enter(context.Background(), signedIn(), "agent")
	if !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty set error, got %v", err)
	}
}

func TestFinalizeTwiceIsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	_ = store.Set(ctx, domain.CollectionUsers, "u1", domain.Document{domain.FieldStartedAt: "earlier"}, true)
	finalizer := app.NewScoreFinalizer(store, time.Second)

	score := app.FinalScore{UserID: "u1", DisplayName: "Alice", UserAgent: "UA", Score: 5, CompletedAt: fixedNow}
	for i := 0; i < 2; i++ {
		if err := finalizer.Finalize(ctx, score); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}

	user, _, _ := store.Get(ctx, domain.CollectionUsers, "u1")
	want := domain.Document{
		domain.FieldStartedAt:   "earlier",
		domain.FieldScore:       5,
		domain.FieldCompletedAt: fixedNow,
		domain.FieldUserAgent:   "UA",
	}
	if len(user) != len(want) {
		t.Fatalf("unexpected user record %+v", user)
	}
	for k, v := range want {
		if user[k] != v {
			t.Fatalf("field %s = %v want %v", k, user[k], v)
		}
	}
	board, _, _ := store.Get(ctx, domain.CollectionLeaderboard, "u1")
	if board[domain.FieldScore] != 5 || board[domain.FieldName] != "Alice" || board[domain.FieldTimestamp] != fixedNow {
		t.Fatalf("unexpected leaderboard record %+v", board)
	}
}

func TestFinalizeSurvivesCancelledCaller(t *testing.T) {
	store := memory.NewDocumentStore()
	finalizer := app.NewScoreFinalizer(store, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := finalizer.Finalize(ctx, app.FinalScore{UserID: "u1", Score: 2, CompletedAt: fixedNow})
	if err != nil {
		t.Fatalf("finalize with cancelled caller: %v", err)
	}
	if _, found, _ := store.Get(context.Background(), domain.CollectionLeaderboard, "u1"); !found {
		t.Fatalf("expected leaderboard write to complete")
	}
}

func newTestService(store app.DocumentStore, set domain.QuestionSet) *app.GameService {
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
		set.ID: set,
	}), 5*time.Minute)
	return app.NewGameService(store, questions, memory.NewSessionStore(), app.Options{
		QuestionSet: set.ID,
		Timeout:     time.Second,
		Now:         func() time.Time { return fixedNow },
	})
}

func enter(t *testing.T, service *app.GameService) *app.Game {
	t.Helper()
	result, game, err := service.Enter(context.Background(), signedIn(), "test-agent")
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if result.Status != app.GuardReady || game == nil {
		t.Fatalf("expected ready, got %v", result.Status)
	}
	return game
}

func signedIn() domain.AuthState {
	return domain.AuthState{Resolved: true, Identity: &domain.Identity{UID: "u1", DisplayName: "Alice"}}
}

func singleQuestion() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "escape-1",
		Questions: []domain.Question{
			{Prompt: "2+2?", Options: []string{"3", "4"}, Solution: "4"},
		},
	}
}

type flakyStore struct {
	*memory.DocumentStore
	mu         sync.Mutex
	failReads  bool
	failWrites bool
	getCalls   int
}

var errUnavailable = errors.New("store unavailable")

func (s *flakyStore) Get(ctx context.Context, collection, id string) (domain.Document, bool, error) {
	s.mu.Lock()
	s.getCalls++
	fail := s.failReads
	s.mu.Unlock()
	if fail {
		return nil, false, errUnavailable
	}
	return s.DocumentStore.Get(ctx, collection, id)
}

func (s *flakyStore) Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return s.DocumentStore.Set(ctx, collection, id, fields, merge)
}

func (s *flakyStore) setFailWrites(v bool) {
	s.mu.Lock()
	s.failWrites = v
	s.mu.Unlock()
}

func (s *flakyStore) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}
