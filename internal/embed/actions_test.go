package embed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/db"
)

const testDim = 3

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), testDim)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func insertChunks(t *testing.T, database *db.DB, toolID string, n int) {
	t.Helper()
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			IDEID:       toolID,
			Text:        fmt.Sprintf("chunk text %d", i),
			SourceURL:   "https://docs.example.com/page",
			Version:     "latest",
			TokenCount:  10,
			ChunkIndex:  i,
			TotalChunks: n,
		}
	}
	if err := database.BulkInsertChunks(context.Background(), chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}
}

// fixedVectorizer returns vectors of a fixed dimension and counts rounds.
type fixedVectorizer struct {
	dim   int
	calls int
}

func (v *fixedVectorizer) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	v.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, v.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestEmbedPending_AttachesAllChunks(t *testing.T) {
	database := setupTestDB(t)
	insertChunks(t, database, "cursor", 5)

	embedded, failed, err := embedPending(context.Background(), database, &fixedVectorizer{dim: testDim}, "cursor", discardLogger())
	if err != nil {
		t.Fatalf("embedPending() error = %v", err)
	}
	if embedded != 5 || failed != 0 {
		t.Errorf("embedded = %d, failed = %d, want 5, 0", embedded, failed)
	}

	pending, err := database.ChunksWithoutEmbedding(context.Background(), "cursor", 0)
	if err != nil {
		t.Fatalf("ChunksWithoutEmbedding() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending chunks = %d after embed, want 0", len(pending))
	}
}

func TestEmbedPending_DimensionMismatchTerminates(t *testing.T) {
	database := setupTestDB(t)
	insertChunks(t, database, "cursor", 4)

	// Every attach fails the store's dimension check, so no round makes
	// progress; the loop must stop after one pass instead of refetching
	// the same rows.
	v := &fixedVectorizer{dim: testDim + 1}
	embedded, failed, err := embedPending(context.Background(), database, v, "cursor", discardLogger())
	if err != nil {
		t.Fatalf("embedPending() error = %v", err)
	}
	if embedded != 0 {
		t.Errorf("embedded = %d, want 0", embedded)
	}
	if failed != 4 {
		t.Errorf("failed = %d, want 4", failed)
	}
	if v.calls != 1 {
		t.Errorf("provider rounds = %d, want 1", v.calls)
	}
}
