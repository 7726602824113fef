package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store with SQLite. Each collection maps to one
// table holding the identifier and the JSON document body.
type SQLiteStore struct {
	db *sql.DB

	// pin holds one connection open for in-memory stores; the database is
	// destroyed when its last connection closes.
	pin *sql.Conn

	mu     sync.RWMutex
	tables map[string]bool
}

// memSeq names in-memory databases so separate stores never share one.
var memSeq atomic.Int64

// NewSQLiteStore opens a SQLite document store at the given path.
// ":memory:" opens an ephemeral store that lives until Close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	memory := path == ":memory:"
	if memory {
		// A plain :memory: DSN gives every pooled connection its own
		// empty database, so tables vanish whenever the pool opens a
		// fresh connection. A named shared-cache database, kept alive
		// by a pinned connection, gives the whole pool one database.
		dsn = fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_busy_timeout=5000", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		tables: make(map[string]bool),
	}

	if memory {
		conn, err := db.Conn(context.Background())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("pin memory database: %w", err)
		}
		store.pin = conn
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			store.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return store, nil
}

// NewSQLiteStoreFromDB creates a SQLite document store from an existing
// connection.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		tables: make(map[string]bool),
	}
}

// tableName returns the table for a collection. Collection names are
// validated identifiers by the time they reach the store; the prefix keeps
// them clear of SQL keywords.
func tableName(collection string) string {
	return "doc_" + collection
}

// EnsureCollection creates the backing table if needed. Safe to call
// repeatedly and from concurrent requests.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, name string) error {
	s.mu.RLock()
	ready := s.tables[name]
	s.mu.RUnlock()
	if ready {
		return nil
	}

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, body TEXT NOT NULL)",
		tableName(name),
	)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	s.mu.Lock()
	s.tables[name] = true
	s.mu.Unlock()
	return nil
}

// Insert persists a new document under id.
func (s *SQLiteStore) Insert(ctx context.Context, collection, id string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (id, body) VALUES (?, ?)", tableName(collection))
	if _, err := s.db.ExecContext(ctx, insertSQL, id, string(body)); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

// Get returns the document with the given id.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Document, error) {
	querySQL := fmt.Sprintf("SELECT body FROM %s WHERE id = ?", tableName(collection))

	var body string
	err := s.db.QueryRowContext(ctx, querySQL, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return decodeDocument(body)
}

// List returns all documents in the collection.
func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Document, error) {
	querySQL := fmt.Sprintf("SELECT body FROM %s", tableName(collection))

	rows, err := s.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		doc, err := decodeDocument(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Replace overwrites the document with the given id.
func (s *SQLiteStore) Replace(ctx context.Context, collection, id string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	updateSQL := fmt.Sprintf("UPDATE %s SET body = ? WHERE id = ?", tableName(collection))
	res, err := s.db.ExecContext(ctx, updateSQL, string(body), id)
	if err != nil {
		return fmt.Errorf("replace: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the document with the given id.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE id = ?", tableName(collection))
	res, err := s.db.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the database connection. For in-memory stores this destroys
// the database.
func (s *SQLiteStore) Close() error {
	if s.pin != nil {
		s.pin.Close()
	}
	return s.db.Close()
}

func decodeDocument(body string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
