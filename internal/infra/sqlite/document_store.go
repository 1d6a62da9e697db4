package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"escape-room-service/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// DocumentStore stores one row per document field so that a merge is a per-field upsert.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(path string) (*DocumentStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	store := &DocumentStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *DocumentStore) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS document_fields (
			collection TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (collection, doc_id, field)
		)
	`)
	return err
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM document_fields WHERE collection = ? AND doc_id = ?`,
		collection, id)
	if err != nil {
		return nil, false, fmt.Errorf("query %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	doc := domain.Document{}
	for rows.Next() {
		var field, encoded string
		if err := rows.Scan(&field, &encoded); err != nil {
			return nil, false, err
		}
		var v any
		if err := json.Unmarshal([]byte(encoded), &v); err != nil {
			return nil, false, fmt.Errorf("decode %s/%s.%s: %w", collection, id, field, err)
		}
		doc[field] = v
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(doc) == 0 {
		return nil, false, nil
	}
	return doc, true, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields domain.Document, merge bool) error {
	if merge && len(fields) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !merge {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM document_fields WHERE collection = ? AND doc_id = ?`, collection, id); err != nil {
			return fmt.Errorf("clear %s/%s: %w", collection, id, err)
		}
	}
	for field, v := range fields {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s/%s.%s: %w", collection, id, field, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO document_fields (collection, doc_id, field, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (collection, doc_id, field) DO UPDATE SET value = excluded.value`,
			collection, id, field, string(encoded))
		if err != nil {
			return fmt.Errorf("upsert %s/%s.%s: %w", collection, id, field, err)
		}
	}
	return tx.Commit()
}
