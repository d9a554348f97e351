package db

import "fmt"

// DefaultEmbeddingDim matches text-embedding-3-small. The vec_chunks
// virtual table is created with the dimension passed to Open, so a
// database is bound to one embedding model for its lifetime.
const DefaultEmbeddingDim = 1536

const schema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS chunks (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    ide_id       TEXT NOT NULL,
    text         TEXT NOT NULL,
    source_url   TEXT NOT NULL DEFAULT '',
    section      TEXT NOT NULL DEFAULT '',
    version      TEXT NOT NULL DEFAULT 'latest',
    token_count  INTEGER NOT NULL,
    chunk_index  INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunks_ide ON chunks(ide_id);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_url);

CREATE TABLE IF NOT EXISTS manifests (
    ide_id     TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func vecSchema(dim int) string {
	return fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);
`, dim)
}
