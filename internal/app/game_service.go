package app

import (
	"context"
	"fmt"
	"time"

	"escape-room-service/internal/domain"
	"github.com/google/uuid"
)

// DocumentStore is the remote keyed document store (Firestore, Mongo, Redis, etc).
// Set with merge keeps existing fields that are not part of fields.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (domain.Document, bool, error)
	Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// SessionRepository keeps the games of live views (in-memory, Redis, etc).
type SessionRepository interface {
	Put(game *Game)
	Get(id string) (*Game, bool)
	Delete(id string)
}

// Options tune a GameService.
type Options struct {
	QuestionSet string
	Positions   []domain.Position
	Timeout     time.Duration
	Now         func() time.Time
}

// GameService contains the escape room use cases.
type GameService struct {
	guard       *SessionGuard
	finalizer   *ScoreFinalizer
	questions   QuestionRepository
	sessions    SessionRepository
	positions   *PositionMapper
	questionSet string
	timeout     time.Duration
	now         func() time.Time
}

func NewGameService(store DocumentStore, questions QuestionRepository, sessions SessionRepository, opts Options) *GameService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &GameService{
		guard:       NewSessionGuard(store, opts.Timeout),
		finalizer:   NewScoreFinalizer(store, opts.Timeout),
		questions:   questions,
		sessions:    sessions,
		positions:   NewPositionMapper(opts.Positions),
		questionSet: opts.QuestionSet,
		timeout:     opts.Timeout,
		now:         now,
	}
}

// Guard runs the session guard for an auth state.
func (s *GameService) Guard(ctx context.Context, state domain.AuthState) (GuardResult, error) {
	return s.guard.Check(ctx, state)
}

// Enter guards state and, when the caller may play, starts a new game for it.
func (s *GameService) Enter(ctx context.Context, state domain.AuthState, userAgent string) (GuardResult, *Game, error) {
	result, err := s.guard.Check(ctx, state)
	if err != nil || result.Status != GuardReady {
		return result, nil, err
	}
	game, err := s.Start(ctx, result, userAgent)
	if err != nil {
		return result, nil, err
	}
	return result, game, nil
}

// Start begins a game for a guard result that allowed entry.
func (s *GameService) Start(ctx context.Context, result GuardResult, userAgent string) (*Game, error) {
	if result.Status != GuardReady {
		return nil, domain.ErrUnauthenticated
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	set, err := s.questions.GetQuestionSet(ctx, s.questionSet)
	if err != nil {
		return nil, fmt.Errorf("load question set %s: %w", s.questionSet, err)
	}
	if len(set.Questions) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}

	game := newGame(uuid.NewString(), result.Identity, userAgent, set.Questions, s.positions, s.finalizer, s.now)
	s.sessions.Put(game)
	return game, nil
}

// Game returns a live game by id.
func (s *GameService) Game(id string) (*Game, error) {
	game, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return game, nil
}

// End discards the state of a view.
func (s *GameService) End(id string) {
	s.sessions.Delete(id)
}

// PositionCount is the size of the marker table.
func (s *GameService) PositionCount() int {
	return s.positions.Len()
}
