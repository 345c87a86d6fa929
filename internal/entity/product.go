package entity

// SupplierProduct is a row from the supplier catalog. The matching engine
// never mutates it; the catalog store owns the entity. Embedding is populated
// only by stores that keep vectors in process (the Postgres store scores
// against the stored vector server-side).
type SupplierProduct struct {
	ID            int64
	Name          string
	PartNumber    string
	Category      string
	Origin        string
	Price         float64
	SupplierName  string
	SupplierEmail string
	Embedding     []float32
}

// MatchCandidate is one scored catalog product for a line item.
// CompositeScore is a deterministic function of (VectorScore, SymbolicScore,
// ExactMatch) under the injected weight configuration.
type MatchCandidate struct {
	Product        SupplierProduct
	VectorScore    float64
	SymbolicScore  float64
	CompositeScore float64
	ExactMatch     bool
}

// MatchReport pairs a line item with its ranked candidates. A report with no
// candidates and a non-nil Err records a per-item matching failure that did
// not abort the rest of the document.
type MatchReport struct {
	Item       LineItem
	Candidates []MatchCandidate
	Err        error
}
