package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/procurex/rfq-matcher/internal/embed"
	"github.com/procurex/rfq-matcher/internal/entity"
	"github.com/procurex/rfq-matcher/internal/repository"
)

// Config holds the injected weights and cutoffs for hybrid scoring.
// Callers tune these without code changes.
type Config struct {
	VectorWeight        float64
	SymbolicWeight      float64
	ExactMatchBonus     float64
	SimilarityThreshold float64
	TopK                int
	// CandidatePool is how many rows the catalog returns after scoring
	// every region-eligible product by the hybrid composite; it must be
	// at least TopK so the true top-k always reaches the engine.
	CandidatePool int
}

// DefaultConfig mirrors the tuning the pipeline shipped with: vector-heavy,
// part numbers as a boost, cutoff at 0.6, five results.
func DefaultConfig() Config {
	return Config{
		VectorWeight:        0.7,
		SymbolicWeight:      0.3,
		ExactMatchBonus:     0.15,
		SimilarityThreshold: 0.6,
		TopK:                5,
		CandidatePool:       50,
	}
}

// Engine ranks catalog products against one line item at a time. Scoring is
// deterministic: identical catalog snapshot, weights, and item produce
// identical ordered results, ties broken by ascending product id.
type Engine struct {
	embedder embed.Embedder
	catalog  repository.Catalog
	cfg      Config
	log      *slog.Logger
}

func NewEngine(embedder embed.Embedder, catalog repository.Catalog, cfg Config, logger *slog.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.CandidatePool < cfg.TopK {
		cfg.CandidatePool = max(cfg.TopK, DefaultConfig().CandidatePool)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{embedder: embedder, catalog: catalog, cfg: cfg, log: logger}
}

// Match embeds the line item, pulls region-eligible candidates, composites
// the scores, applies the threshold, and returns at most TopK candidates in
// descending composite order. An empty catalog, or one fully excluded by the
// region filter, yields an empty slice, not an error.
func (e *Engine) Match(ctx context.Context, item entity.LineItem) ([]entity.MatchCandidate, error) {
	vector, err := e.embedder.EmbedText(ctx, embeddingText(item))
	if err != nil {
		return nil, fmt.Errorf("embed line item %q: %w", item.Name, err)
	}

	rows, err := e.catalog.Search(ctx, repository.CandidateQuery{
		Embedding:       vector,
		PartNumber:      item.PartNumber,
		Region:          item.DeliveryRegion,
		VectorWeight:    e.cfg.VectorWeight,
		SymbolicWeight:  e.cfg.SymbolicWeight,
		ExactMatchBonus: e.cfg.ExactMatchBonus,
		Limit:           e.cfg.CandidatePool,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]entity.MatchCandidate, 0, len(rows))
	for _, row := range rows {
		c := e.score(item, row)
		if c.CompositeScore < e.cfg.SimilarityThreshold {
			continue
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CompositeScore != candidates[j].CompositeScore {
			return candidates[i].CompositeScore > candidates[j].CompositeScore
		}
		return candidates[i].Product.ID < candidates[j].Product.ID
	})
	if len(candidates) > e.cfg.TopK {
		candidates = candidates[:e.cfg.TopK]
	}

	e.log.Debug("match.ok",
		"item", item.Name,
		"region", item.DeliveryRegion,
		"pool", len(rows),
		"returned", len(candidates),
	)
	return candidates, nil
}

// score composites one row. The exact-match bonus is additive after
// weighting; the composite is clamped to 1.0 so scores stay comparable.
func (e *Engine) score(item entity.LineItem, row repository.CandidateRow) entity.MatchCandidate {
	vectorScore := clamp01(row.VectorScore)

	symbolicScore := 0.0
	if item.PartNumber != "" && row.Product.PartNumber != "" {
		symbolicScore = clamp01(row.PartScore)
	}

	exact := partNumbersEqual(item.PartNumber, row.Product.PartNumber)

	composite := e.cfg.VectorWeight*vectorScore + e.cfg.SymbolicWeight*symbolicScore
	if exact {
		composite += e.cfg.ExactMatchBonus
	}
	composite = clamp01(composite)

	return entity.MatchCandidate{
		Product:        row.Product,
		VectorScore:    vectorScore,
		SymbolicScore:  symbolicScore,
		CompositeScore: composite,
		ExactMatch:     exact,
	}
}

// embeddingText is what gets embedded for the item: the name, with the part
// number appended for extra context when present.
func embeddingText(item entity.LineItem) string {
	if item.PartNumber == "" {
		return item.Name
	}
	return item.Name + " " + item.PartNumber
}

func partNumbersEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
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
