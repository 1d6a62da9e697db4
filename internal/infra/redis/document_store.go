package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"escape-room-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DocumentStore keeps each document in a hash: HSET doc:{collection}:{id} {field} {json value}.
// HSET only touches the given fields, which is exactly merge semantics.
type DocumentStore struct {
	client *redis.Client
}

func NewDocumentStore(client *redis.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, bool, error) {
	raw, err := s.client.HGetAll(ctx, s.key(collection, id)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("hgetall %s/%s: %w", collection, id, err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	doc := make(domain.Document, len(raw))
	for field, encoded := range raw {
		var v any
		if err := json.Unmarshal([]byte(encoded), &v); err != nil {
			return nil, false, fmt.Errorf("decode %s/%s.%s: %w", collection, id, field, err)
		}
		doc[field] = v
	}
	return doc, true, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error {
	if merge && len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for field, v := range fields {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s/%s.%s: %w", collection, id, field, err)
		}
		values[field] = string(encoded)
	}

	key := s.key(collection, id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if !merge {
			pipe.Del(ctx, key)
		}
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) key(collection, id string) string {
	return "doc:" + collection + ":" + id
}
