package memory

import (
	"context"
	"sync"

	"escape-room-service/internal/domain"
)

// DocumentStore is an in-memory implementation of app.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]domain.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]map[string]domain.Document)}
}

func (s *DocumentStore) Get(_ context.Context, collection, id string) (domain.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, false, nil
	}
	return copyDocument(doc), true, nil
}

func (s *DocumentStore) Set(_ context.Context, collection, id string, fields domain.Document, merge bool) error {
	if merge && len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.docs[collection]
	if !ok {
		docs = make(map[string]domain.Document)
		s.docs[collection] = docs
	}
	existing, ok := docs[id]
	if !ok || !merge {
		docs[id] = copyDocument(fields)
		return nil
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func copyDocument(doc domain.Document) domain.Document {
	out := make(domain.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
