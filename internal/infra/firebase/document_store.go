package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"escape-room-service/internal/domain"
	fb "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentStore is the Firestore implementation of app.DocumentStore.
type DocumentStore struct {
	client *firestore.Client
}

func NewDocumentStore(ctx context.Context, app *fb.App) (*DocumentStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return &DocumentStore{client: client}, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, bool, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error reading %s/%s: %w", collection, id, err)
	}
	return domain.Document(snap.Data()), true, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error {
	if merge && len(fields) == 0 {
		return nil
	}
	ref := s.client.Collection(collection).Doc(id)
	data := map[string]interface{}(fields)

	var err error
	if merge {
		_, err = ref.Set(ctx, data, firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("error writing %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) Close() error {
	return s.client.Close()
}
