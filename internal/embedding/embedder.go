// Package embedding maps text to fixed-length numeric vectors via an
// OpenAI-compatible embeddings API.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Dimensionality is fixed across all calls within one deployment.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
