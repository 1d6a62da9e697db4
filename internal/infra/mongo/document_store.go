package mongo

import (
	"context"
	"errors"
	"fmt"

	"escape-room-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentStore maps each collection to a MongoDB collection keyed by _id.
type DocumentStore struct {
	db *mongo.Database
}

func NewDocumentStore(client *mongo.Client, database string) *DocumentStore {
	return &DocumentStore{db: client.Database(database)}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, bool, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	delete(raw, "_id")
	return domain.Document(raw), true, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error {
	coll := s.db.Collection(collection)
	filter := bson.M{"_id": id}

	if merge {
		if len(fields) == 0 {
			return nil
		}
		_, err := coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M(fields)}, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
		}
		return nil
	}

	replacement := bson.M{}
	for k, v := range fields {
		replacement[k] = v
	}
	if _, err := coll.ReplaceOne(ctx, filter, replacement, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	return nil
}
