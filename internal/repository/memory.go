package repository

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// MemoryCatalog is an in-process Catalog over a fixed product slice, scoring
// with cosine similarity and the trigram measure above. It mirrors the
// Postgres store's semantics for offline runs and tests.
type MemoryCatalog struct {
	products []entity.SupplierProduct
}

// NewMemoryCatalog copies products so later caller mutations cannot leak in.
func NewMemoryCatalog(products []entity.SupplierProduct) *MemoryCatalog {
	cp := make([]entity.SupplierProduct, len(products))
	copy(cp, products)
	return &MemoryCatalog{products: cp}
}

func (c *MemoryCatalog) Search(_ context.Context, q CandidateQuery) ([]CandidateRow, error) {
	var out []CandidateRow
	for _, p := range c.products {
		if q.Region != "" && !strings.EqualFold(p.Origin, q.Region) {
			continue
		}

		row := CandidateRow{Product: p}
		row.VectorScore = clamp01(cosineSimilarity(q.Embedding, p.Embedding))
		if q.PartNumber != "" && p.PartNumber != "" {
			row.PartScore = TrigramSimilarity(p.PartNumber, q.PartNumber)
		}
		row.HybridScore = q.VectorWeight*row.VectorScore + q.SymbolicWeight*row.PartScore
		if exactPartNumber(q.PartNumber, p.PartNumber) {
			row.HybridScore += q.ExactMatchBonus
		}
		row.HybridScore = clamp01(row.HybridScore)
		out = append(out, row)
	}

	// The limit cuts after every eligible row is scored, matching the
	// Postgres store: ordering is by hybrid score, never raw vector score.
	sort.Slice(out, func(i, j int) bool {
		if out[i].HybridScore != out[j].HybridScore {
			return out[i].HybridScore > out[j].HybridScore
		}
		return out[i].Product.ID < out[j].Product.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func exactPartNumber(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
