// Package embedder turns chunk text into vectors. A Service batches
// requests, caches by content hash, retries transient failures, and fails
// over from the primary provider to a secondary one.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/promptforge/promptforge/pkg/retry"
)

// Provider is one embedding backend. Implementations return one vector
// per input text, in input order.
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Service coordinates providers with batching and a content-hash cache.
// Identical text never hits a provider twice within one process.
type Service struct {
	primary   Provider
	secondary Provider
	batchSize int
	policy    retry.Policy
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string][]float32
}

// NewService builds a Service. secondary may be nil; batchSize <= 0 gets
// a sane default.
func NewService(primary, secondary Provider, batchSize int, logger *slog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		primary:   primary,
		secondary: secondary,
		batchSize: batchSize,
		policy:    retry.DefaultPolicy(3),
		logger:    logger,
		cache:     map[string][]float32{},
	}
}

// Embed returns one vector per text, in input order. Cached texts are
// served locally; the rest go to the providers in batches.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Resolve from cache first, collecting misses in input order.
	var missIdx []int
	var missTexts []string
	s.mu.Lock()
	for i, text := range texts {
		if vec, ok := s.cache[contentKey(text)]; ok {
			out[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}
	s.mu.Unlock()

	for start := 0; start < len(missTexts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batch := missTexts[start:end]

		vectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		for j, vec := range vectors {
			out[missIdx[start+j]] = vec
			s.cache[contentKey(batch[j])] = vec
		}
		s.mu.Unlock()
	}

	return out, nil
}

// EmbedSingle embeds one text.
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// ClearCache drops every cached vector, for model changes mid-process.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = map[string][]float32{}
	s.mu.Unlock()
}

// CacheSize returns the number of cached vectors.
func (s *Service) CacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// embedBatch tries the primary with retries, then the secondary. Both
// failing returns a combined error.
func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vectors [][]float32
	primaryErr := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		vectors, err = s.primary.Embed(ctx, batch)
		return err
	})
	if primaryErr == nil {
		return vectors, nil
	}

	if s.secondary == nil {
		return nil, fmt.Errorf("embed batch via %s: %w", s.primary.Name(), primaryErr)
	}

	s.logger.Warn("primary embedding provider failed, trying secondary",
		"primary", s.primary.Name(), "secondary", s.secondary.Name(), "error", primaryErr)

	secondaryErr := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		vectors, err = s.secondary.Embed(ctx, batch)
		return err
	})
	if secondaryErr == nil {
		return vectors, nil
	}
	return nil, fmt.Errorf("all embedding providers failed: %s: %v; %s: %v",
		s.primary.Name(), primaryErr, s.secondary.Name(), secondaryErr)
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
