package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/promptforge/promptforge/models"
)

// BulkInsertChunks inserts all chunks in one transaction and backfills
// their IDs. A failure rolls the whole batch back.
func (db *DB) BulkInsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (ide_id, text, source_url, section, version, token_count, chunk_index, total_chunks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		res, err := stmt.ExecContext(ctx,
			c.IDEID, c.Text, c.SourceURL, c.Section, c.Version,
			c.TokenCount, c.ChunkIndex, c.TotalChunks,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get chunk ID: %w", err)
		}
		c.ID = id
	}

	return tx.Commit()
}

// ChunksWithoutEmbedding returns up to limit chunks for a tool that have
// no row in vec_chunks yet. A limit <= 0 means no cap.
func (db *DB) ChunksWithoutEmbedding(ctx context.Context, ideID string, limit int) ([]models.Chunk, error) {
	query := `
		SELECT id, ide_id, text, source_url, section, version, token_count, chunk_index, total_chunks
		FROM chunks
		WHERE ide_id = ? AND id NOT IN (SELECT chunk_id FROM vec_chunks)
		ORDER BY id
	`
	args := []any{ideID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// AttachEmbedding stores one chunk's embedding in the vector table.
func (db *DB) AttachEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) != db.dim {
		return fmt.Errorf("embedding dimension %d does not match database dimension %d", len(embedding), db.dim)
	}
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding for chunk %d: %w", chunkID, err)
	}
	_, err = db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
		chunkID, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding for chunk %d: %w", chunkID, err)
	}
	return nil
}

// DeleteChunksByTool removes a tool's chunks and their embeddings, the
// precursor to a re-crawl.
func (db *DB) DeleteChunksByTool(ctx context.Context, ideID string) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM vec_chunks WHERE chunk_id IN (SELECT id FROM chunks WHERE ide_id = ?)", ideID,
	); err != nil {
		return 0, fmt.Errorf("failed to delete embeddings: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE ide_id = ?", ideID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted chunks: %w", err)
	}
	return n, tx.Commit()
}

// SampleChunks returns up to limit of a tool's chunks in storage order,
// the corpus sample format detection runs over.
func (db *DB) SampleChunks(ctx context.Context, ideID string, limit int) ([]models.Chunk, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, ide_id, text, source_url, section, version, token_count, chunk_index, total_chunks
		FROM chunks
		WHERE ide_id = ?
		ORDER BY id
		LIMIT ?
	`, ideID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// CountChunks returns the number of stored chunks for a tool.
func (db *DB) CountChunks(ctx context.Context, ideID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE ide_id = ?", ideID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// DocVersion returns the most common version tag among a tool's chunks,
// "latest" when the tool has none.
func (db *DB) DocVersion(ctx context.Context, ideID string) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, `
		SELECT version FROM chunks
		WHERE ide_id = ?
		GROUP BY version
		ORDER BY COUNT(*) DESC, version
		LIMIT 1
	`, ideID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "latest", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read doc version: %w", err)
	}
	return version, nil
}

func scanChunks(rows *sql.Rows) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(
			&c.ID, &c.IDEID, &c.Text, &c.SourceURL, &c.Section, &c.Version,
			&c.TokenCount, &c.ChunkIndex, &c.TotalChunks,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
