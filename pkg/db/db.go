// Package db persists chunks, embeddings, and manifests in a single
// SQLite database. Vector search runs through the sqlite-vec extension;
// embeddings live in the vec_chunks virtual table keyed by chunk id.
package db

import (
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

const DefaultDBName = "promptforge.db"

type DB struct {
	*sql.DB
	path string
	dim  int
}

// Open opens or creates the database at dbPath and ensures the schema,
// including the vector table sized to embeddingDim (DefaultEmbeddingDim
// when <= 0).
func Open(dbPath string, embeddingDim int) (*DB, error) {
	if embeddingDim <= 0 {
		embeddingDim = DefaultEmbeddingDim
	}

	sqlDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{DB: sqlDB, path: dbPath, dim: embeddingDim}
	if err := db.initSchema(); err != nil {
		_ = db.Close() // Close error less important than schema error
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// EmbeddingDim returns the vector dimension the database was opened with.
func (db *DB) EmbeddingDim() int {
	return db.dim
}

func (db *DB) initSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	_, err := db.Exec(vecSchema(db.dim))
	return err
}
