// Package retrieve implements policy retrieval against the vector index,
// including the tenant scope filter and its zero-result fallback.
package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/openclaims/claimlens/internal/cache"
	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
	"github.com/openclaims/claimlens/internal/vectordb"
)

// payload keys written by the policy ingestion job.
const (
	payloadContentKey = "content"
	payloadSourceKey  = "source"
	payloadUserIDKey  = "user_id"
)

// Embedder turns a free-text query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the similarity-search service the retriever queries.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, filter *vectordb.Filter) ([]vectordb.ScoredPoint, error)
}

// Retriever returns ranked policy-text chunks for a query, scoped to the
// configured source tag. Retrieval failure degrades evaluation quality but
// must never abort the pipeline, so Search reports errors as an empty set.
type Retriever struct {
	log          *logger.Logger
	embedder     Embedder
	searcher     Searcher
	sourceTag    string
	defaultLimit int
	cache        cache.Cache
	cacheTTL     time.Duration
}

// New creates a retriever. Both the embedder and the search client are
// injected; nothing here owns a shared singleton.
func New(log *logger.Logger, embedder Embedder, searcher Searcher, cfg config.RetrievalConfig) *Retriever {
	r := &Retriever{
		log:          log.With("component", "retrieve"),
		embedder:     embedder,
		searcher:     searcher,
		sourceTag:    cfg.SourceTag,
		defaultLimit: cfg.DefaultLimit,
		cacheTTL:     cfg.CacheTTL,
	}
	if cfg.CacheTTL > 0 {
		r.cache = cache.NewMemoryCache(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return r
}

// Search returns policy chunks for the query, ranked by similarity score
// descending. The primary call filters strictly by the source tag. If and
// only if the primary call returns zero chunks and a user identifier is
// available, a second call widens the scope to source-or-user and appends
// its results. A primary result that is non-empty but below limit is never
// topped up.
func (r *Retriever) Search(ctx context.Context, query string, limit int, userID string) []model.PolicyChunk {
	if limit <= 0 {
		limit = r.defaultLimit
	}

	cacheKey := cache.Key(query, strconv.Itoa(limit), userID)
	if cached, ok := r.cached(cacheKey); ok {
		return cached
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("query embedding failed, returning no policy chunks", "error", err)
		return []model.PolicyChunk{}
	}

	primary := &vectordb.Filter{
		Must: []vectordb.Condition{{Key: payloadSourceKey, Value: r.sourceTag}},
	}
	points, err := r.searcher.Search(ctx, vector, limit, primary)
	if err != nil {
		r.log.Warn("policy search failed, returning no policy chunks", "error", err)
		return []model.PolicyChunk{}
	}

	chunks := toChunks(points)

	// Early-stage tenants may not have source-tagged policy data yet, so an
	// empty primary result widens the scope to the user's own uploads.
	if len(chunks) == 0 && userID != "" {
		fallback := &vectordb.Filter{
			Should: []vectordb.Condition{
				{Key: payloadSourceKey, Value: r.sourceTag},
				{Key: payloadUserIDKey, Value: userID},
			},
		}
		widened, err := r.searcher.Search(ctx, vector, limit, fallback)
		if err != nil {
			r.log.Warn("fallback policy search failed", "error", err)
		} else {
			chunks = append(chunks, toChunks(widened)...)
		}
	}

	r.store(cacheKey, chunks)
	r.log.Debug("policy search complete", "query_len", len(query), "chunks", len(chunks))
	return chunks
}

func toChunks(points []vectordb.ScoredPoint) []model.PolicyChunk {
	chunks := make([]model.PolicyChunk, 0, len(points))
	for _, p := range points {
		content, _ := p.Payload[payloadContentKey].(string)
		metadata := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			if k == payloadContentKey {
				continue
			}
			metadata[k] = v
		}
		chunks = append(chunks, model.PolicyChunk{
			ID:       p.ID,
			Content:  content,
			Metadata: metadata,
			Score:    p.Score,
		})
	}
	return chunks
}

func (r *Retriever) cached(key string) ([]model.PolicyChunk, bool) {
	if r.cache == nil {
		return nil, false
	}
	data, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	var chunks []model.PolicyChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		_ = r.cache.Delete(key)
		return nil, false
	}
	return chunks, true
}

func (r *Retriever) store(key string, chunks []model.PolicyChunk) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return
	}
	if err := r.cache.Set(key, data, r.cacheTTL); err != nil {
		r.log.Debug("cache store failed", "error", fmt.Sprint(err))
	}
}
