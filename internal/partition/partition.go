package partition

import (
	"context"

	"pdfqa/internal/domain"
)

// Partitioner extracts typed content elements from a PDF. Element order in
// the returned slice follows document position; the normalizer relies on it
// for caption pairing.
type Partitioner interface {
	// Structural runs the fast structural pass: typed elements with image
	// payloads, table HTML and captions, no chunking.
	Structural(ctx context.Context, path string) ([]domain.Element, error)
	// Chunked runs the title-anchored chunking pass: smaller fragments are
	// merged into composite segments under size thresholds.
	Chunked(ctx context.Context, path string) ([]domain.Element, error)
}
