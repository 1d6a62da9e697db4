package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"escape-room-service/internal/domain"
)

func TestDocumentStoreMergeAndReplace(t *testing.T) {
	store, err := NewDocumentStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, found, err := store.Get(ctx, "users", "u1"); err != nil || found {
		t.Fatalf("expected missing doc, found=%v err=%v", found, err)
	}

	if err := store.Set(ctx, "users", "u1", domain.Document{"startedAt": "2024-05-04T12:00:00Z", "score": 0}, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "users", "u1", domain.Document{"score": 5, "userAgent": "UA"}, true); err != nil {
		t.Fatalf("merge: %v", err)
	}

	doc, found, err := store.Get(ctx, "users", "u1")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if doc["startedAt"] != "2024-05-04T12:00:00Z" || doc["score"] != float64(5) || doc["userAgent"] != "UA" {
		t.Fatalf("unexpected merged doc %+v", doc)
	}

	if err := store.Set(ctx, "users", "u1", domain.Document{"score": 1}, false); err != nil {
		t.Fatalf("replace: %v", err)
	}
	doc, _, _ = store.Get(ctx, "users", "u1")
	if len(doc) != 1 || doc["score"] != float64(1) {
		t.Fatalf("expected replaced doc, got %+v", doc)
	}
}
