// Package ingest owns the chunk lifecycle from normalized content through
// embedding to bulk storage.
package ingest

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"pdfqa/internal/domain"
	"pdfqa/internal/embedding"
	"pdfqa/internal/index"
)

// Status is the terminal state of an ingestion run.
type Status string

const (
	// StatusIngested means the collection was (re)created and loaded.
	StatusIngested Status = "ingested"
	// StatusSkipped means the collection already existed and force was not
	// set; nothing was touched.
	StatusSkipped Status = "skipped"
)

// Sources are the normalized chunks of one document, grouped by content
// type. Groups are bulk-loaded separately so a failure in one can be
// diagnosed without discarding the others.
type Sources struct {
	Images []domain.Chunk
	Tables []domain.Chunk
	Texts  []domain.Chunk
}

// Report summarizes an ingestion run: documents stored per group and
// chunks skipped by per-chunk validation.
type Report struct {
	Status  Status
	Images  int
	Tables  int
	Texts   int
	Skipped int
}

// Total is the number of successfully ingested chunks.
func (r Report) Total() int { return r.Images + r.Tables + r.Texts }

// Pipeline embeds normalized chunks and bulk-loads them into the index
// store, one collection per document.
type Pipeline struct {
	store     index.Store
	embedder  embedding.Embedder
	dimension int
	logger    log.Logger
}

// NewPipeline creates a Pipeline. dimension is the fixed embedding
// dimension enforced on every collection and chunk.
func NewPipeline(store index.Store, embedder embedding.Embedder, dimension int, logger log.Logger) *Pipeline {
	return &Pipeline{store: store, embedder: embedder, dimension: dimension, logger: logger}
}

// Exists reports whether the collection is already present in the store.
// Callers use it to decide whether an ingestion run is needed at all before
// doing any extraction work.
func (p *Pipeline) Exists(ctx context.Context, collection string) (bool, error) {
	return p.store.Exists(ctx, collection)
}

// Ingest provisions the collection and loads all chunk groups into it.
//
// If the collection exists and force is false, the run is skipped entirely.
// With force set, the existing collection is dropped and recreated; there
// are no merge semantics. Chunks failing validation (empty content,
// embedding failure, dimension mismatch) are skipped individually and never
// abort the batch. A bulk failure aborts its group and the groups after it;
// groups already committed stay committed.
func (p *Pipeline) Ingest(ctx context.Context, collection string, src Sources, force bool) (Report, error) {
	exists, err := p.store.Exists(ctx, collection)
	if err != nil {
		return Report{}, fmt.Errorf("check collection %q: %w", collection, err)
	}
	if exists && !force {
		p.logger.Info().Str("collection", collection).Msg("collection already exists, skipping ingestion")
		return Report{Status: StatusSkipped}, nil
	}
	if exists {
		if err := p.store.Delete(ctx, collection); err != nil {
			return Report{}, fmt.Errorf("drop collection %q: %w", collection, err)
		}
	}
	if err := p.store.Create(ctx, collection, p.dimension); err != nil {
		return Report{}, fmt.Errorf("create collection %q: %w", collection, err)
	}

	report := Report{Status: StatusIngested}
	groups := []struct {
		name   string
		chunks []domain.Chunk
		count  *int
	}{
		{"images", src.Images, &report.Images},
		{"tables", src.Tables, &report.Tables},
		{"texts", src.Texts, &report.Texts},
	}
	for _, g := range groups {
		prepared := p.prepare(ctx, g.chunks, &report.Skipped)
		n, err := p.store.BulkIndex(ctx, collection, prepared)
		if err != nil {
			// Prior groups stay committed; there is no cross-group rollback.
			return report, fmt.Errorf("bulk load %s into %q: %w", g.name, collection, err)
		}
		*g.count = n
		p.logger.Info().Str("collection", collection).Str("group", g.name).Int("count", n).Msg("ingested chunk group")
	}
	return report, nil
}

// prepare embeds each chunk independently, dropping chunks with empty
// content, failed embedding calls, or a vector of the wrong dimension.
func (p *Pipeline) prepare(ctx context.Context, chunks []domain.Chunk, skipped *int) []domain.Chunk {
	prepared := make([]domain.Chunk, 0, len(chunks))
	for i, ch := range chunks {
		if ch.Content == "" {
			p.logger.Warn().Int("chunk", i).Msg("skipping chunk with empty content")
			*skipped++
			continue
		}
		vec, err := p.embedder.Embed(ctx, ch.Content)
		if err != nil {
			p.logger.Warn().Err(err).Int("chunk", i).Msg("skipping chunk, embedding failed")
			*skipped++
			continue
		}
		if len(vec) != p.dimension {
			p.logger.Warn().Int("chunk", i).Int("got", len(vec)).Int("want", p.dimension).Msg("skipping chunk, embedding dimension mismatch")
			*skipped++
			continue
		}
		ch.Embedding = vec
		prepared = append(prepared, ch)
	}
	return prepared
}
