package app

import (
	"context"
	"fmt"
	"time"

	"escape-room-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// FinalScore is what gets persisted when a run ends.
type FinalScore struct {
	UserID      string
	DisplayName string
	UserAgent   string
	Score       int
	CompletedAt time.Time
}

// ScoreFinalizer writes the finished run to the user and leaderboard collections.
type ScoreFinalizer struct {
	store   DocumentStore
	timeout time.Duration
}

func NewScoreFinalizer(store DocumentStore, timeout time.Duration) *ScoreFinalizer {
	return &ScoreFinalizer{store: store, timeout: timeout}
}

// Finalize merge-writes both records and returns once both have been applied.
// The writes are independent merges, so they run concurrently. They are not
// cancelled with ctx: a closed view must not drop the score. Each write is
// still bounded by the store timeout.
func (f *ScoreFinalizer) Finalize(ctx context.Context, score FinalScore) error {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	userFields := domain.Document{
		domain.FieldScore:       score.Score,
		domain.FieldCompletedAt: score.CompletedAt,
		domain.FieldUserAgent:   score.UserAgent,
	}
	entry := domain.LeaderboardEntry{
		Score:       score.Score,
		DisplayName: score.DisplayName,
		Timestamp:   score.CompletedAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := f.store.Set(gctx, domain.CollectionUsers, score.UserID, userFields, true); err != nil {
			return fmt.Errorf("%w: user %s: %w", domain.ErrRemoteWrite, score.UserID, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := f.store.Set(gctx, domain.CollectionLeaderboard, score.UserID, entry.Fields(), true); err != nil {
			return fmt.Errorf("%w: leaderboard %s: %w", domain.ErrRemoteWrite, score.UserID, err)
		}
		return nil
	})
	return g.Wait()
}
