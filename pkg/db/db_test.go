package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/promptforge/promptforge/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath, 3)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleChunks(ideID string, n int) []models.Chunk {
	chunks := make([]models.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, models.Chunk{
			IDEID:       ideID,
			Text:        "chunk body",
			SourceURL:   "https://docs.example.com/guide",
			Section:     "Guide",
			Version:     "latest",
			TokenCount:  120,
			ChunkIndex:  i,
			TotalChunks: n,
		})
	}
	return chunks
}

func TestBulkInsertChunks_AssignsIDs(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	chunks := sampleChunks("cursor", 3)
	if err := database.BulkInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}
	for i, c := range chunks {
		if c.ID == 0 {
			t.Errorf("chunk %d: ID not backfilled", i)
		}
	}

	n, err := database.CountChunks(ctx, "cursor")
	if err != nil {
		t.Fatalf("CountChunks() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountChunks() = %d, want 3", n)
	}
}

func TestChunksWithoutEmbedding_ShrinksAsEmbeddingsAttach(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	chunks := sampleChunks("cursor", 2)
	if err := database.BulkInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}

	pending, err := database.ChunksWithoutEmbedding(ctx, "cursor", 0)
	if err != nil {
		t.Fatalf("ChunksWithoutEmbedding() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := database.AttachEmbedding(ctx, chunks[0].ID, []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("AttachEmbedding() error = %v", err)
	}

	pending, err = database.ChunksWithoutEmbedding(ctx, "cursor", 0)
	if err != nil {
		t.Fatalf("ChunksWithoutEmbedding() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != chunks[1].ID {
		t.Errorf("pending = %+v, want only the unembedded chunk", pending)
	}
}

func TestAttachEmbedding_RejectsWrongDimension(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	chunks := sampleChunks("cursor", 1)
	if err := database.BulkInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}
	if err := database.AttachEmbedding(ctx, chunks[0].ID, []float32{0.1}); err == nil {
		t.Error("AttachEmbedding() with wrong dimension succeeded, want error")
	}
}

func TestSearchSimilar_NearestFirst(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	chunks := sampleChunks("cursor", 3)
	if err := database.BulkInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	for i, c := range chunks {
		if err := database.AttachEmbedding(ctx, c.ID, embeddings[i]); err != nil {
			t.Fatalf("AttachEmbedding() error = %v", err)
		}
	}

	results, err := database.SearchSimilar(ctx, "cursor", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Chunk.ID != chunks[0].ID {
		t.Errorf("nearest = chunk %d, want the exact match %d", results[0].Chunk.ID, chunks[0].ID)
	}
	if results[0].Distance > results[1].Distance {
		t.Errorf("results not ordered by distance: %v, %v", results[0].Distance, results[1].Distance)
	}
}

func TestSearchText_SubstringFallback(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	chunks := []models.Chunk{
		{IDEID: "cursor", Text: "Configure the JSON settings file", Version: "latest", TokenCount: 10, TotalChunks: 2},
		{IDEID: "cursor", Text: "Keyboard shortcuts reference", Version: "latest", TokenCount: 10, ChunkIndex: 1, TotalChunks: 2},
	}
	if err := database.BulkInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}

	results, err := database.SearchText(ctx, "cursor", "json settings", 10)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != chunks[0].ID {
		t.Errorf("results = %+v, want only the settings chunk", results)
	}
}

func TestDeleteChunksByTool_RemovesOnlyThatTool(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	cursor := sampleChunks("cursor", 2)
	copilot := sampleChunks("copilot", 1)
	if err := database.BulkInsertChunks(ctx, cursor); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}
	if err := database.BulkInsertChunks(ctx, copilot); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}
	if err := database.AttachEmbedding(ctx, cursor[0].ID, []float32{1, 0, 0}); err != nil {
		t.Fatalf("AttachEmbedding() error = %v", err)
	}

	n, err := database.DeleteChunksByTool(ctx, "cursor")
	if err != nil {
		t.Fatalf("DeleteChunksByTool() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	remaining, err := database.CountChunks(ctx, "copilot")
	if err != nil {
		t.Fatalf("CountChunks() error = %v", err)
	}
	if remaining != 1 {
		t.Errorf("copilot chunks = %d, want 1 untouched", remaining)
	}
}

func TestDocVersion(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	v, err := database.DocVersion(ctx, "cursor")
	if err != nil {
		t.Fatalf("DocVersion() error = %v", err)
	}
	if v != "latest" {
		t.Errorf("DocVersion() on empty tool = %q, want latest", v)
	}

	chunks := sampleChunks("cursor", 3)
	chunks[0].Version = "2.1"
	chunks[1].Version = "2.1"
	chunks[2].Version = "1.0"
	if err := database.BulkInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("BulkInsertChunks() error = %v", err)
	}

	v, err = database.DocVersion(ctx, "cursor")
	if err != nil {
		t.Fatalf("DocVersion() error = %v", err)
	}
	if v != "2.1" {
		t.Errorf("DocVersion() = %q, want majority version 2.1", v)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	m := &models.IDEManifest{
		ID:              "cursor",
		Name:            "Cursor",
		PreferredFormat: models.FormatJSON,
		FallbackFormats: []string{models.FormatMarkdown},
		Validation:      models.ManifestValidation{Type: models.FormatJSON, Rules: []string{"must not be empty"}},
		Templates:       map[string]string{models.FormatJSON: "{}"},
		DocVersion:      "latest",
		LastUpdated:     "2026-03-01T12:00:00Z",
	}
	if err := database.SaveManifest(ctx, m); err != nil {
		t.Fatalf("SaveManifest() error = %v", err)
	}

	got, err := database.GetManifest(ctx, "cursor")
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if got.Name != "Cursor" || got.PreferredFormat != models.FormatJSON {
		t.Errorf("GetManifest() = %+v, want saved manifest back", got)
	}

	// Saving again overwrites.
	m.PreferredFormat = models.FormatMarkdown
	m.Templates = map[string]string{models.FormatMarkdown: "## System"}
	if err := database.SaveManifest(ctx, m); err != nil {
		t.Fatalf("SaveManifest() update error = %v", err)
	}
	got, err = database.GetManifest(ctx, "cursor")
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if got.PreferredFormat != models.FormatMarkdown {
		t.Errorf("PreferredFormat = %q, want updated markdown", got.PreferredFormat)
	}
}

func TestSaveManifest_RejectsInvalid(t *testing.T) {
	database := setupTestDB(t)
	if err := database.SaveManifest(context.Background(), &models.IDEManifest{ID: "x", PreferredFormat: "yaml"}); err == nil {
		t.Error("SaveManifest() with unknown format succeeded, want error")
	}
}

func TestGetManifest_NotFound(t *testing.T) {
	database := setupTestDB(t)
	_, err := database.GetManifest(context.Background(), "missing")
	if !errors.Is(err, ErrManifestNotFound) {
		t.Errorf("error = %v, want ErrManifestNotFound", err)
	}
}
