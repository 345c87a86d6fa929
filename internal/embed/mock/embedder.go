package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder is a test double for embed.Embedder. The default behavior is
// deterministic: the same text always produces the same unit-length vector.
type Embedder struct {
	// EmbedTextFunc overrides the default behavior when set.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// Dim is the vector dimension; defaults to 384.
	Dim int

	callCount int
}

func NewEmbedder() *Embedder {
	return &Embedder{Dim: 384}
}

func (m *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount++
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 384
	}
	return deterministicVector(text, dim), nil
}

// CallCount returns how many times EmbedText was called.
func (m *Embedder) CallCount() int {
	return m.callCount
}

// deterministicVector derives a pseudo-random vector from an FNV hash of the
// text, normalized to unit length.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		inv := float32(1.0 / math.Sqrt(float64(sumSquares)))
		for i := range vector {
			vector[i] *= inv
		}
	}
	return vector
}
