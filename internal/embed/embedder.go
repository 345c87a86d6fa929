package embed

import "context"

// Embedder is the embedding-generation collaborator: text in, fixed-dimension
// vector out. Implementations must be safe for concurrent use.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
