package redis

import (
	"context"
	"sync"
	"time"

	"escape-room-service/internal/app"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultOpTimeout = 5 * time.Second

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Games stay in a local map because their state belongs to the live view;
// Redis only carries a liveness marker per game and a per-user set of live
// games, so operators can see who is playing across instances. Every lookup
// of a game pushes its liveness TTL forward.
type SessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
	mu      sync.RWMutex
	games   map[string]*app.Game
}

// NewSessionStore creates the store. timeout bounds each Redis round trip; zero uses a 5s default.
func NewSessionStore(client *redis.Client, ttl, timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &SessionStore{
		client:  client,
		ttl:     ttl,
		timeout: timeout,
		games:   make(map[string]*app.Game),
	}
}

func (s *SessionStore) Put(game *app.Game) {
	s.mu.Lock()
	s.games[game.ID()] = game
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	uid := game.Identity().UID
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(game.ID()), uid, s.ttl)
	pipe.SAdd(ctx, s.userKey(uid), game.ID())
	if s.ttl > 0 {
		pipe.Expire(ctx, s.userKey(uid), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("game", game.ID()).Msg("mark game live")
	}
}

func (s *SessionStore) Get(id string) (*app.Game, bool) {
	s.mu.RLock()
	game, ok := s.games[id]
	s.mu.RUnlock()
	if ok {
		s.refresh(game)
	}
	return game, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	game, ok := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.userKey(game.Identity().UID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("game", id).Msg("clear game liveness")
	}
}

// LiveGames lists the ids of games a user has open on any instance.
func (s *SessionStore) LiveGames(ctx context.Context, uid string) ([]string, error) {
	return s.client.SMembers(ctx, s.userKey(uid)).Result()
}

func (s *SessionStore) refresh(game *app.Game) {
	if s.ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	pipe := s.client.Pipeline()
	pipe.Expire(ctx, s.key(game.ID()), s.ttl)
	pipe.Expire(ctx, s.userKey(game.Identity().UID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("game", game.ID()).Msg("refresh game liveness")
	}
}

func (s *SessionStore) key(id string) string {
	return "escape:game:" + id
}

func (s *SessionStore) userKey(uid string) string {
	return "escape:user:" + uid + ":games"
}
