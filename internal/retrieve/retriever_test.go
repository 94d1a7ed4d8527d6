package retrieve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/vectordb"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

type stubSearcher struct {
	calls   []*vectordb.Filter
	results [][]vectordb.ScoredPoint
	errs    []error
}

func (s *stubSearcher) Search(ctx context.Context, vector []float32, limit int, filter *vectordb.Filter) ([]vectordb.ScoredPoint, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, filter)
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	var res []vectordb.ScoredPoint
	if idx < len(s.results) {
		res = s.results[idx]
	}
	return res, err
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		SourceTag:    "insurance_claim_policy",
		DefaultLimit: 5,
	}
}

func points(ids ...string) []vectordb.ScoredPoint {
	out := make([]vectordb.ScoredPoint, 0, len(ids))
	for i, id := range ids {
		out = append(out, vectordb.ScoredPoint{
			ID:      id,
			Score:   1.0 - float64(i)*0.1,
			Payload: map[string]any{"content": "policy text " + id, "source": "insurance_claim_policy"},
		})
	}
	return out
}

func TestSearch_PrimaryHit_NoFallback(t *testing.T) {
	searcher := &stubSearcher{results: [][]vectordb.ScoredPoint{points("c1", "c2")}}
	r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, testConfig())

	chunks := r.Search(context.Background(), "hail damage coverage", 5, "user-1")

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("expected 1 search call, got %d", len(searcher.calls))
	}
	if len(searcher.calls[0].Must) != 1 || searcher.calls[0].Must[0].Value != "insurance_claim_policy" {
		t.Errorf("primary filter = %+v", searcher.calls[0])
	}
	if chunks[0].Content != "policy text c1" {
		t.Errorf("content not mapped: %+v", chunks[0])
	}
	if _, leaked := chunks[0].Metadata["content"]; leaked {
		t.Error("content duplicated into metadata")
	}
}

func TestSearch_EmptyPrimaryTriggersFallback(t *testing.T) {
	searcher := &stubSearcher{results: [][]vectordb.ScoredPoint{nil, points("f1", "f2", "f3")}}
	r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, testConfig())

	chunks := r.Search(context.Background(), "hail damage coverage", 5, "user-1")

	if len(chunks) != 3 {
		t.Fatalf("expected 3 fallback chunks, got %d", len(chunks))
	}
	if len(searcher.calls) != 2 {
		t.Fatalf("expected 2 search calls, got %d", len(searcher.calls))
	}
	fb := searcher.calls[1]
	if len(fb.Should) != 2 {
		t.Fatalf("fallback filter = %+v, want source-or-user alternatives", fb)
	}
	if fb.Should[1].Key != "user_id" || fb.Should[1].Value != "user-1" {
		t.Errorf("fallback user condition = %+v", fb.Should[1])
	}
}

func TestSearch_BelowLimitPrimaryNeverTopsUp(t *testing.T) {
	// One chunk against a limit of five: the threshold for the fallback is
	// strictly zero, so no second call may happen.
	searcher := &stubSearcher{results: [][]vectordb.ScoredPoint{points("only")}}
	r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, testConfig())

	chunks := r.Search(context.Background(), "q", 5, "user-1")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(searcher.calls) != 1 {
		t.Errorf("expected no fallback call, got %d calls", len(searcher.calls))
	}
}

func TestSearch_NoFallbackWithoutUserID(t *testing.T) {
	searcher := &stubSearcher{}
	r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, testConfig())

	chunks := r.Search(context.Background(), "q", 5, "")

	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if len(searcher.calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(searcher.calls))
	}
}

func TestSearch_ErrorsDegradeToEmpty(t *testing.T) {
	t.Run("embed error", func(t *testing.T) {
		searcher := &stubSearcher{}
		r := New(logger.NewNop(), &stubEmbedder{err: errors.New("boom")}, searcher, testConfig())
		if got := r.Search(context.Background(), "q", 5, "u"); len(got) != 0 {
			t.Errorf("expected empty, got %v", got)
		}
		if len(searcher.calls) != 0 {
			t.Error("search should not run when embedding fails")
		}
	})

	t.Run("primary search error", func(t *testing.T) {
		searcher := &stubSearcher{errs: []error{errors.New("boom")}}
		r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, testConfig())
		if got := r.Search(context.Background(), "q", 5, "u"); len(got) != 0 {
			t.Errorf("expected empty, got %v", got)
		}
	})

	t.Run("fallback search error", func(t *testing.T) {
		searcher := &stubSearcher{errs: []error{nil, errors.New("boom")}}
		r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, testConfig())
		if got := r.Search(context.Background(), "q", 5, "u"); len(got) != 0 {
			t.Errorf("expected empty, got %v", got)
		}
	})
}

func TestSearch_CacheHitShortCircuits(t *testing.T) {
	cfg := testConfig()
	cfg.CacheTTL = time.Minute

	searcher := &stubSearcher{results: [][]vectordb.ScoredPoint{points("c1")}}
	r := New(logger.NewNop(), &stubEmbedder{vector: []float32{0.1}}, searcher, cfg)

	first := r.Search(context.Background(), "q", 5, "u")
	second := r.Search(context.Background(), "q", 5, "u")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("chunks = %d then %d, want 1 and 1", len(first), len(second))
	}
	if len(searcher.calls) != 1 {
		t.Errorf("expected cached second lookup, got %d search calls", len(searcher.calls))
	}
}
