package app

import (
	"context"
	"fmt"
	"time"

	"escape-room-service/internal/domain"
)

// GuardStatus is the outcome of checking whether a caller may play.
type GuardStatus int

const (
	GuardPending GuardStatus = iota
	GuardUnauthenticated
	GuardAlreadyCompleted
	GuardReady
)

func (s GuardStatus) String() string {
	switch s {
	case GuardPending:
		return "pending"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardAlreadyCompleted:
		return "alreadyCompleted"
	case GuardReady:
		return "ready"
	default:
		return "unknown"
	}
}

// GuardResult carries the guard status and, once signed in, the identity it was computed for.
type GuardResult struct {
	Status   GuardStatus
	Identity domain.Identity
}

// Redirect returns the history-replacing navigation the view should perform, if any.
func (r GuardResult) Redirect() (domain.Navigation, bool) {
	switch r.Status {
	case GuardUnauthenticated:
		return domain.Navigation{Path: domain.PathEntry, Replace: true}, true
	case GuardAlreadyCompleted:
		return domain.Navigation{Path: domain.PathCompleted, Replace: true}, true
	default:
		return domain.Navigation{}, false
	}
}

// SessionGuard decides whether an auth state may enter the game.
type SessionGuard struct {
	store   DocumentStore
	timeout time.Duration
}

func NewSessionGuard(store DocumentStore, timeout time.Duration) *SessionGuard {
	return &SessionGuard{store: store, timeout: timeout}
}

// Check evaluates state. Only a signed-in state touches the store; a failed
// lookup blocks entry with an error wrapping domain.ErrRemoteRead.
func (g *SessionGuard) Check(ctx context.Context, state domain.AuthState) (GuardResult, error) {
	if !state.Resolved {
		return GuardResult{Status: GuardPending}, nil
	}
	if state.Identity == nil {
		return GuardResult{Status: GuardUnauthenticated}, nil
	}
	identity := *state.Identity

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	doc, found, err := g.store.Get(ctx, domain.CollectionUsers, identity.UID)
	if err != nil {
		return GuardResult{Identity: identity}, fmt.Errorf("%w: lookup user %s: %w", domain.ErrRemoteRead, identity.UID, err)
	}
	if found && (hasValue(doc, domain.FieldStartedAt) || hasValue(doc, domain.FieldCompletedAt)) {
		return GuardResult{Status: GuardAlreadyCompleted, Identity: identity}, nil
	}
	return GuardResult{Status: GuardReady, Identity: identity}, nil
}

func hasValue(doc domain.Document, field string) bool {
	v, ok := doc[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
