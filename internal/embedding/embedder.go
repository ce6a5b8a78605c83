package embedding

import "context"

// Embedder converts free text into a fixed-length numeric vector via an
// external embedding service.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}
