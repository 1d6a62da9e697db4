package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"escape-room-service/internal/domain"
)

// Outcome summarizes a submitted answer.
type Outcome struct {
	Correct       bool
	Complete      bool
	Index         int
	Score         int
	Position      domain.Position
	MarkerVisible bool
	Navigate      *domain.Navigation
}

// Game is the state of one view: the run record, the question sequence and the draft answer.
type Game struct {
	id        string
	identity  domain.Identity
	userAgent string
	now       func() time.Time
	finalizer *ScoreFinalizer
	positions *PositionMapper

	mu           sync.Mutex
	seq          *Sequencer
	record       *domain.GameRecord
	draft        string
	questionOpen bool
	finalized    bool
}

func newGame(id string, identity domain.Identity, userAgent string, questions []domain.Question, positions *PositionMapper, finalizer *ScoreFinalizer, now func() time.Time) *Game {
	return &Game{
		id:        id,
		identity:  identity,
		userAgent: userAgent,
		now:       now,
		finalizer: finalizer,
		positions: positions,
		seq:       NewSequencer(questions),
		record:    domain.NewGameRecord(now(), identity.PhoneNumber),
	}
}

func (g *Game) ID() string { return g.id }

func (g *Game) Identity() domain.Identity { return g.identity }

// Snapshot copies the current view state.
func (g *Game) Snapshot() domain.SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() domain.SessionState {
	return domain.SessionState{
		CurrentQuestionIndex: g.seq.Index(),
		ResponseDraft:        g.draft,
		Authenticated:        true,
		AuthResolved:         true,
		SequenceComplete:     g.seq.Complete(),
		QuestionOpen:         g.questionOpen,
		Finalized:            g.finalized,
		Score:                g.record.Score(),
		TotalQuestions:       g.seq.Len(),
	}
}

// OpenQuestion shows the question panel and returns the current question.
// It returns false once every question has been answered.
func (g *Game) OpenQuestion() (domain.Question, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	q, ok := g.seq.Current()
	if !ok {
		return domain.Question{}, false
	}
	g.questionOpen = true
	return q, true
}

func (g *Game) CloseQuestion() {
	g.mu.Lock()
	g.questionOpen = false
	g.mu.Unlock()
}

func (g *Game) SetDraft(response string) {
	g.mu.Lock()
	g.draft = response
	g.mu.Unlock()
}

// Position returns where the marker sits for the current question.
// The marker is hidden once every question has been answered.
func (g *Game) Position() (domain.Position, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.markerLocked()
}

func (g *Game) markerLocked() (domain.Position, bool) {
	if g.seq.Complete() {
		return domain.Position{}, false
	}
	return g.positions.PositionFor(g.seq.Index())
}

// Submit checks the draft against the current question. A wrong answer
// changes nothing. A right answer clears the draft, scores, advances and
// closes the panel; answering the last question finalizes the run.
func (g *Game) Submit(ctx context.Context) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	q, ok := g.seq.Current()
	if !ok {
		return Outcome{}, domain.ErrSequenceComplete
	}
	if !CheckAnswer(g.draft, q.Solution) {
		return g.outcomeLocked(false), nil
	}

	g.draft = ""
	g.questionOpen = false
	g.record.UpdateScore(g.record.Score() + q.Weight())
	done := g.seq.Advance()

	out := g.outcomeLocked(true)
	if !done {
		return out, nil
	}
	nav, err := g.finalizeLocked(ctx)
	if err != nil {
		return out, err
	}
	out.Navigate = &nav
	return out, nil
}

// RetryFinalize repeats the final writes after a failed attempt.
func (g *Game) RetryFinalize(ctx context.Context) (domain.Navigation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seq.Complete() {
		return domain.Navigation{}, domain.ErrNotComplete
	}
	return g.finalizeLocked(ctx)
}

func (g *Game) finalizeLocked(ctx context.Context) (domain.Navigation, error) {
	nav := domain.Navigation{Path: domain.PathCompleted, Replace: true}
	if g.finalized {
		return nav, nil
	}
	g.record.Complete(g.now(), g.userAgent)
	err := g.finalizer.Finalize(ctx, FinalScore{
		UserID:      g.identity.UID,
		DisplayName: g.identity.DisplayName,
		UserAgent:   g.record.UserAgent(),
		Score:       g.record.Score(),
		CompletedAt: g.record.CompletedAt(),
	})
	if err != nil {
		return domain.Navigation{}, err
	}
	g.finalized = true
	return nav, nil
}

func (g *Game) outcomeLocked(correct bool) Outcome {
	pos, visible := g.markerLocked()
	return Outcome{
		Correct:       correct,
		Complete:      g.seq.Complete(),
		Index:         g.seq.Index(),
		Score:         g.record.Score(),
		Position:      pos,
		MarkerVisible: visible,
	}
}

// IsRetryable reports whether err leaves the game in a state that can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrRemoteWrite) || errors.Is(err, domain.ErrRemoteRead)
}
