package models

// Chunk is a bounded-length slice of a source document's text, sized for
// embedding and retrieval. Chunks are created once during a crawl and are
// mutated afterwards only to attach an embedding.
type Chunk struct {
	ID          int64     `json:"id,omitempty"`
	IDEID       string    `json:"ide_id"`
	Text        string    `json:"text"`
	SourceURL   string    `json:"source_url,omitempty"`
	Section     string    `json:"section,omitempty"`
	Version     string    `json:"version"`
	Embedding   []float32 `json:"embedding,omitempty"`
	TokenCount  int       `json:"token_count"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
}

// ChunkInput is the document-level input to the chunker.
type ChunkInput struct {
	IDEID     string
	Text      string
	SourceURL string
	Section   string
	Version   string
}
