package memory

import (
	"context"
	"testing"

	"escape-room-service/internal/domain"
)

func TestDocumentStoreMergeKeepsExistingFields(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	if err := store.Set(ctx, "users", "u1", domain.Document{"startedAt": "t0", "score": 1}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "users", "u1", domain.Document{"score": 5}, true); err != nil {
		t.Fatalf("merge: %v", err)
	}

	doc, found, err := store.Get(ctx, "users", "u1")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if doc["startedAt"] != "t0" || doc["score"] != 5 {
		t.Fatalf("unexpected merged doc %+v", doc)
	}
}

func TestDocumentStoreReplaceDropsFields(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	_ = store.Set(ctx, "users", "u1", domain.Document{"startedAt": "t0"}, true)
	_ = store.Set(ctx, "users", "u1", domain.Document{"score": 2}, false)

	doc, _, _ := store.Get(ctx, "users", "u1")
	if _, ok := doc["startedAt"]; ok {
		t.Fatalf("expected replace to drop startedAt, got %+v", doc)
	}
}

func TestDocumentStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()
	_ = store.Set(ctx, "leaderboard", "u1", domain.Document{"score": 1}, true)

	doc, _, _ := store.Get(ctx, "leaderboard", "u1")
	doc["score"] = 99

	again, _, _ := store.Get(ctx, "leaderboard", "u1")
	if again["score"] != 1 {
		t.Fatalf("store mutated through returned document: %+v", again)
	}

	if _, found, _ := store.Get(ctx, "leaderboard", "missing"); found {
		t.Fatalf("expected missing document")
	}
}
