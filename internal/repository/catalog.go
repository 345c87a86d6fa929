package repository

import (
	"context"
	"errors"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// ErrCatalogUnavailable wraps any catalog query failure. Recoverable per line
// item: the pipeline substitutes an empty MatchReport and continues.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// CandidateQuery asks the catalog for scored candidate rows.
type CandidateQuery struct {
	// Embedding is the query vector for the line item.
	Embedding []float32

	// PartNumber is the line item's part number; empty when absent, in
	// which case part-number similarity is 0 for every row.
	PartNumber string

	// Region restricts candidates to products whose origin equals it
	// (case-insensitive). Empty means no restriction. Applied before
	// scoring, so returned rows are always region-eligible.
	Region string

	// VectorWeight, SymbolicWeight, and ExactMatchBonus feed the
	// store-side hybrid score that orders the result. Every
	// region-eligible row is scored before the limit applies, so the
	// composite-best candidates always survive the cut.
	VectorWeight    float64
	SymbolicWeight  float64
	ExactMatchBonus float64

	// Limit caps the rows returned, drawn in descending hybrid-score
	// order with ascending-id tie-break. Must be positive.
	Limit int
}

// CandidateRow is one region-eligible product with the store-computed
// similarity primitives. HybridScore is the store's ordering value; the
// engine recomputes the composite from the primitives so the final ranking
// is reproducible in Go.
type CandidateRow struct {
	Product     entity.SupplierProduct
	VectorScore float64 // 1 - cosine distance, clamped to [0,1]
	PartScore   float64 // trigram similarity in [0,1]; 0 when either part number is absent
	HybridScore float64 // weighted composite with exact-match bonus, clamped to [0,1]
}

// Catalog is the read-only queryable product source. Implementations never
// mutate products and must be safe for concurrent use.
type Catalog interface {
	Search(ctx context.Context, q CandidateQuery) ([]CandidateRow, error)
}
