// Package retrieval implements the keyword, semantic and hybrid search
// strategies over the index store. Strategy calls are stateless and never
// raise to the caller: search-layer failures are logged and yield an empty
// result set, with hybrid first cascading to keyword-only search.
package retrieval

import (
	"context"

	"github.com/phuslu/log"

	"pdfqa/internal/domain"
	"pdfqa/internal/embedding"
	"pdfqa/internal/index"
)

// DefaultTopK bounds result size when the caller does not specify one.
const DefaultTopK = 20

// Engine constructs queries against the index store. It never mutates
// stored data.
type Engine struct {
	store    index.Store
	embedder embedding.Embedder
	logger   log.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(store index.Store, embedder embedding.Embedder, logger log.Logger) *Engine {
	return &Engine{store: store, embedder: embedder, logger: logger}
}

// Search dispatches to the strategy the caller selected.
func (e *Engine) Search(ctx context.Context, collection string, strategy domain.Strategy, query string, topK int) []domain.SearchHit {
	switch strategy {
	case domain.StrategyKeyword:
		return e.Keyword(ctx, collection, query, topK)
	case domain.StrategySemantic:
		return e.Semantic(ctx, collection, query, topK)
	default:
		return e.Hybrid(ctx, collection, query, topK)
	}
}

// Keyword runs an analyzed text match on content, ranked by the store's
// text-relevance score.
func (e *Engine) Keyword(ctx context.Context, collection, query string, topK int) []domain.SearchHit {
	if topK <= 0 {
		topK = DefaultTopK
	}
	hits, err := e.store.SearchKeyword(ctx, collection, query, topK)
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", collection).Msg("keyword search failed")
		return nil
	}
	return hits
}

// Semantic embeds the query and runs a k-nearest-neighbor search on the
// embedding field.
func (e *Engine) Semantic(ctx context.Context, collection, query string, topK int) []domain.SearchHit {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", collection).Msg("semantic search failed, query embedding error")
		return nil
	}
	hits, err := e.store.SearchVector(ctx, collection, vec, topK)
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", collection).Msg("semantic search failed")
		return nil
	}
	return hits
}

// Hybrid issues one combined query matching either the vector-similarity
// condition or the keyword condition, with ranking delegated entirely to
// the store. If the combined query cannot be built or fails, it falls back
// to keyword-only search with the same parameters; if that fails too, the
// result is empty. No retry of the original strategy is attempted.
func (e *Engine) Hybrid(ctx context.Context, collection, query string, topK int) []domain.SearchHit {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", collection).Msg("hybrid search falling back to keyword, query embedding error")
		return e.Keyword(ctx, collection, query, topK)
	}
	hits, err := e.store.SearchHybrid(ctx, collection, query, vec, topK)
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", collection).Msg("hybrid search falling back to keyword")
		return e.Keyword(ctx, collection, query, topK)
	}
	return hits
}
