package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteDocumentStore implements domain.DocumentStore in a local SQLite file,
// one row per document with the fields kept as a JSON object.
type SQLiteDocumentStore struct {
	db *sql.DB
}

// OpenSQLiteDocumentStore opens (or creates) the database at dbPath
func OpenSQLiteDocumentStore(dbPath string) (*SQLiteDocumentStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps read-modify-write merges serialized
	db.SetMaxOpenConns(1)

	store := &SQLiteDocumentStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteDocumentStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteDocumentStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
  path TEXT PRIMARY KEY,
  parent TEXT NOT NULL,
  doc_id TEXT NOT NULL,
  data TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent, doc_id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *SQLiteDocumentStore) Get(ctx context.Context, path string) (*domain.Document, error) {
	_, id, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}

	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", path, mapSQLiteError(err))
	}

	data, err := decodeJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return &domain.Document{ID: id, Path: path, Data: data}, nil
}

func (s *SQLiteDocumentStore) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	parent, id, err := domain.SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := domain.NormalizeFields(fields)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapSQLiteError(err))
	}
	defer tx.Rollback()

	data := normalized
	if merge {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, path).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read document %s: %w", path, mapSQLiteError(err))
		default:
			existing, err := decodeJSONObject(raw)
			if err != nil {
				return fmt.Errorf("decode document %s: %w", path, err)
			}
			for k, v := range normalized {
				existing[k] = v
			}
			data = existing
		}
	}

	if err := upsertDocument(ctx, tx, path, parent, id, data); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", path, mapSQLiteError(err))
	}
	return nil
}

func (s *SQLiteDocumentStore) Append(ctx context.Context, collectionPath string, doc any) (string, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return "", err
	}
	normalized, err := domain.NormalizeFields(doc)
	if err != nil {
		return "", err
	}

	id := newDocumentID()
	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (path, parent, doc_id, data, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collectionPath+"/"+id, collectionPath, id, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", collectionPath, mapSQLiteError(err))
	}
	return id, nil
}

func (s *SQLiteDocumentStore) List(ctx context.Context, collectionPath string) ([]*domain.Document, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, doc_id, data FROM documents WHERE parent = ? ORDER BY doc_id`, collectionPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collectionPath, mapSQLiteError(err))
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		var path, id, raw string
		if err := rows.Scan(&path, &id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collectionPath, err)
		}
		data, err := decodeJSONObject(raw)
		if err != nil {
			return nil, fmt.Errorf("decode document %s: %w", path, err)
		}
		docs = append(docs, &domain.Document{ID: id, Path: path, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collectionPath, mapSQLiteError(err))
	}
	return docs, nil
}

func upsertDocument(ctx context.Context, tx *sql.Tx, path, parent, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	const stmt = `
INSERT INTO documents (path, parent, doc_id, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  data=excluded.data,
  updated_at=excluded.updated_at
`
	if _, err := tx.ExecContext(ctx, stmt, path, parent, id, string(raw), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write document %s: %w", path, mapSQLiteError(err))
	}
	return nil
}

func decodeJSONObject(raw string) (map[string]any, error) {
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// mapSQLiteError flags a locked/busy database as domain.ErrPersistenceUnavailable
func mapSQLiteError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return err
}
