package db

import (
	"context"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/promptforge/promptforge/models"
)

// SearchResult pairs a chunk with its vector distance to the query. A
// text-fallback match reports distance 0.
type SearchResult struct {
	Chunk    models.Chunk `json:"chunk"`
	Distance float64      `json:"distance"`
}

// SearchSimilar finds the k chunks nearest to the query embedding,
// optionally restricted to one tool.
func (db *DB) SearchSimilar(ctx context.Context, ideID string, queryEmbedding []float32, k int) ([]SearchResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query embedding: %w", err)
	}

	query := `
		SELECT c.id, c.ide_id, c.text, c.source_url, c.section, c.version,
		       c.token_count, c.chunk_index, c.total_chunks, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ?
	`
	args := []any{blob}
	if ideID != "" {
		query += " AND c.ide_id = ?"
		args = append(args, ideID)
	}
	query += " ORDER BY v.distance LIMIT ?"
	args = append(args, k)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.Chunk.ID, &r.Chunk.IDEID, &r.Chunk.Text, &r.Chunk.SourceURL,
			&r.Chunk.Section, &r.Chunk.Version, &r.Chunk.TokenCount,
			&r.Chunk.ChunkIndex, &r.Chunk.TotalChunks, &r.Distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchText is the degraded path when no embedding provider is reachable:
// a case-insensitive substring match over chunk text.
func (db *DB) SearchText(ctx context.Context, ideID, term string, k int) ([]SearchResult, error) {
	query := `
		SELECT id, ide_id, text, source_url, section, version, token_count, chunk_index, total_chunks
		FROM chunks
		WHERE text LIKE ? COLLATE NOCASE
	`
	args := []any{"%" + term + "%"}
	if ideID != "" {
		query += " AND ide_id = ?"
		args = append(args, ideID)
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, k)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run text search: %w", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, SearchResult{Chunk: c})
	}
	return results, nil
}
