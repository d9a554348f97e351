package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/promptforge/promptforge/pkg/retry"
)

type stubProvider struct {
	name     string
	calls    int
	batches  [][]string
	failures int // fail this many calls before succeeding
	err      error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.batches = append(s.batches, append([]string(nil), texts...))
	if s.err != nil {
		return nil, s.err
	}
	if s.calls <= s.failures {
		return nil, errors.New("transient failure")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func fastPolicy() retry.Policy {
	p := retry.DefaultPolicy(3)
	p.BaseDelay = time.Millisecond
	return p
}

func newTestService(primary, secondary Provider, batchSize int) *Service {
	s := NewService(primary, secondary, batchSize, nil)
	s.policy = fastPolicy()
	return s
}

func TestEmbed_OrderPreserved(t *testing.T) {
	primary := &stubProvider{name: "stub"}
	s := newTestService(primary, nil, 10)

	texts := []string{"a", "bb", "ccc"}
	vecs, err := s.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Errorf("vecs[%d] = %v, want [%v]", i, vecs[i], want)
		}
	}
}

func TestEmbed_Batching(t *testing.T) {
	primary := &stubProvider{name: "stub"}
	s := newTestService(primary, nil, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	if _, err := s.Embed(context.Background(), texts); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(primary.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(primary.batches))
	}
	for i, b := range primary.batches[:2] {
		if len(b) != 2 {
			t.Errorf("batch %d size = %d, want 2", i, len(b))
		}
	}
	if len(primary.batches[2]) != 1 {
		t.Errorf("tail batch size = %d, want 1", len(primary.batches[2]))
	}
}

func TestEmbed_CacheHitSkipsProvider(t *testing.T) {
	primary := &stubProvider{name: "stub"}
	s := newTestService(primary, nil, 10)
	ctx := context.Background()

	if _, err := s.Embed(ctx, []string{"same text"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	callsAfterFirst := primary.calls

	if _, err := s.Embed(ctx, []string{"same text"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if primary.calls != callsAfterFirst {
		t.Errorf("provider called again for cached text (%d -> %d calls)", callsAfterFirst, primary.calls)
	}
	if s.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", s.CacheSize())
	}

	s.ClearCache()
	if s.CacheSize() != 0 {
		t.Errorf("CacheSize() after clear = %d, want 0", s.CacheSize())
	}
	if _, err := s.Embed(ctx, []string{"same text"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if primary.calls == callsAfterFirst {
		t.Error("provider not consulted after cache clear")
	}
}

func TestEmbed_RetriesTransientFailure(t *testing.T) {
	primary := &stubProvider{name: "stub", failures: 2}
	s := newTestService(primary, nil, 10)

	if _, err := s.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Embed() error = %v, want success after retries", err)
	}
	if primary.calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures then success)", primary.calls)
	}
}

func TestEmbed_FailoverToSecondary(t *testing.T) {
	primary := &stubProvider{name: "openai", err: errors.New("quota exceeded")}
	secondary := &stubProvider{name: "ollama"}
	s := newTestService(primary, secondary, 10)

	vecs, err := s.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed() error = %v, want secondary to serve", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vecs))
	}
	if secondary.calls == 0 {
		t.Error("secondary never consulted")
	}
}

func TestEmbed_BothProvidersFailing(t *testing.T) {
	primary := &stubProvider{name: "openai", err: errors.New("quota")}
	secondary := &stubProvider{name: "ollama", err: errors.New("connection refused")}
	s := newTestService(primary, secondary, 10)

	_, err := s.Embed(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("Embed() succeeded, want combined failure")
	}
	msg := err.Error()
	for _, part := range []string{"openai", "ollama"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q missing provider %s", msg, part)
		}
	}
}

func TestEmbed_Empty(t *testing.T) {
	primary := &stubProvider{name: "stub"}
	s := newTestService(primary, nil, 10)
	vecs, err := s.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil) error = %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("got %d vectors, want 0", len(vecs))
	}
	if primary.calls != 0 {
		t.Errorf("provider called %d times for empty input", primary.calls)
	}
}

func TestContentKeyDistinct(t *testing.T) {
	if contentKey("a") == contentKey("b") {
		t.Error("distinct texts share a cache key")
	}
	if contentKey("a") != contentKey("a") {
		t.Error("cache key not deterministic")
	}
	if fmt.Sprintf("%d", len(contentKey("a"))) != "64" {
		t.Errorf("key length = %d, want 64 hex chars", len(contentKey("a")))
	}
}
