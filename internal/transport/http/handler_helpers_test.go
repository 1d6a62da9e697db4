package http

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"escape-room-service/internal/app"
	"escape-room-service/internal/auth"
	"escape-room-service/internal/domain"
	"escape-room-service/internal/infra/memory"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	store    *countingStore
	verifier *auth.JWTVerifier
	service  *app.GameService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &countingStore{DocumentStore: memory.NewDocumentStore()}
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleSets()), time.Minute)
	service := app.NewGameService(store, questions, memory.NewSessionStore(), app.Options{
		QuestionSet: "escape-1",
		Timeout:     time.Second,
	})
	return &testEnv{store: store, verifier: auth.NewJWTVerifier(testSecret), service: service}
}

func (e *testEnv) token(t *testing.T, uid, name string) string {
	t.Helper()
	token, err := e.verifier.Issue(domain.Identity{UID: uid, DisplayName: name}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"escape-1": {
			ID: "escape-1",
			Questions: []domain.Question{
				{Prompt: "2+2?", Options: []string{"3", "4"}, Solution: "4"},
			},
		},
	}
}

// countingStore wraps the memory store to count calls and inject failures.
type countingStore struct {
	*memory.DocumentStore
	mu         sync.Mutex
	calls      int
	failWrites bool
}

func (s *countingStore) Get(ctx context.Context, collection, id string) (domain.Document, bool, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.DocumentStore.Get(ctx, collection, id)
}

func (s *countingStore) Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error {
	s.mu.Lock()
	s.calls++
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return s.DocumentStore.Set(ctx, collection, id, fields, merge)
}

func (s *countingStore) setFailWrites(v bool) {
	s.mu.Lock()
	s.failWrites = v
	s.mu.Unlock()
}

func (s *countingStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
