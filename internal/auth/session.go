package auth

import (
	"context"
	"errors"
	"sync"

	"escape-room-service/internal/domain"
)

// Verifier resolves a bearer token to the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Revoker is implemented by providers that can invalidate a user's sessions on sign-out.
type Revoker interface {
	Revoke(ctx context.Context, uid string) error
}

// Session tracks the auth state of a single view and notifies observers on every transition.
type Session struct {
	verifier Verifier

	mu          sync.Mutex
	state       domain.AuthState
	subscribers map[chan domain.AuthState]struct{}
}

func NewSession(verifier Verifier) *Session {
	return &Session{
		verifier:    verifier,
		subscribers: make(map[chan domain.AuthState]struct{}),
	}
}

// State returns the current auth state.
func (s *Session) State() domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnAuthStateChanged returns a channel receiving the current state and every later transition.
// The caller must invoke the returned cancel function to release the subscription.
func (s *Session) OnAuthStateChanged() (<-chan domain.AuthState, func()) {
	ch := make(chan domain.AuthState, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.state
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// SignIn verifies token. A rejected token resolves the state as signed out;
// any other failure (a profile lookup that did not go through) leaves the
// state untouched so the caller can retry.
func (s *Session) SignIn(ctx context.Context, token string) error {
	identity, err := s.verifier.Verify(ctx, token)
	if errors.Is(err, domain.ErrInvalidToken) {
		s.transition(domain.AuthState{Resolved: true})
		return err
	}
	if err != nil {
		return err
	}
	s.transition(domain.AuthState{Resolved: true, Identity: &identity})
	return nil
}

// SignOut clears the session, revoking it upstream when the provider supports that.
func (s *Session) SignOut(ctx context.Context) error {
	current := s.State()
	var err error
	if revoker, ok := s.verifier.(Revoker); ok && current.Identity != nil {
		err = revoker.Revoke(ctx, current.Identity.UID)
	}
	s.transition(domain.AuthState{Resolved: true})
	return err
}

func (s *Session) transition(next domain.AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	for ch := range s.subscribers {
		select {
		case ch <- next:
		default:
			// drop the oldest pending state; observers only care about the latest
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
}
