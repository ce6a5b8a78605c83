package index

import (
	"context"

	"pdfqa/internal/domain"
)

// Store is a document store holding one collection per ingested document.
// Every collection has a fixed schema: content (text-indexed), content_type
// and filename (exact-match), token_count, and a fixed-dimension embedding
// field enabling similarity search.
//
// Searches on a collection that does not exist return an empty result, not
// an error. Ranking is the store's native relevance order, descending; the
// hybrid search in particular delegates score combination entirely to the
// store.
type Store interface {
	Ping(ctx context.Context) error
	Exists(ctx context.Context, collection string) (bool, error)
	Create(ctx context.Context, collection string, dimension int) error
	Delete(ctx context.Context, collection string) error
	// BulkIndex submits all chunks in one bulk operation and returns the
	// number of documents indexed. Any item failure fails the whole call.
	BulkIndex(ctx context.Context, collection string, chunks []domain.Chunk) (int, error)
	SearchKeyword(ctx context.Context, collection, query string, topK int) ([]domain.SearchHit, error)
	SearchVector(ctx context.Context, collection string, vector []float32, topK int) ([]domain.SearchHit, error)
	SearchHybrid(ctx context.Context, collection, query string, vector []float32, topK int) ([]domain.SearchHit, error)
}
