package describe

import "context"

// Describer turns a prompt, optionally accompanied by inline image data,
// into a natural-language description. One network round trip per call, no
// retries.
type Describer interface {
	Describe(ctx context.Context, prompt string, image []byte) (string, error)
}
