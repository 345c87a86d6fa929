package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// PostgresCatalog queries supplier_products with pgvector's cosine-distance
// operator and pg_trgm's similarity(). Requires the vector and pg_trgm
// extensions on the target database.
type PostgresCatalog struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresCatalog(pool *pgxpool.Pool, logger *slog.Logger) *PostgresCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCatalog{pool: pool, log: logger}
}

const hybridQuery = `
SELECT sp.id,
       sp.name,
       sp.part_number,
       sp.category,
       sp.origin,
       sp.price,
       s.name  AS supplier_name,
       s.email AS supplier_email,
       GREATEST(0.0, LEAST(1.0, 1 - (sp.embedding <=> $1::vector))) AS vector_score,
       CASE
           WHEN $2 <> '' AND sp.part_number <> '' THEN similarity(sp.part_number, $2)
           ELSE 0.0
       END AS part_score,
       LEAST(1.0,
           $5::float8 * GREATEST(0.0, LEAST(1.0, 1 - (sp.embedding <=> $1::vector)))
         + $6::float8 * CASE
               WHEN $2 <> '' AND sp.part_number <> '' THEN similarity(sp.part_number, $2)
               ELSE 0.0
           END
         + CASE
               WHEN btrim($2) <> '' AND lower(btrim(sp.part_number)) = lower(btrim($2)) THEN $7::float8
               ELSE 0.0
           END
       ) AS hybrid_score
FROM supplier_products sp
JOIN suppliers s ON sp.supplier_id = s.id
WHERE ($3 = '' OR lower(sp.origin) = lower($3))
ORDER BY hybrid_score DESC, sp.id ASC
LIMIT $4`

// Search scores every region-eligible row and returns up to q.Limit of them
// in descending hybrid-score order, ties broken by ascending product id. The
// limit cuts after composite scoring, never before, so an exact part-number
// match with a weak embedding cannot fall out of the pool.
func (c *PostgresCatalog) Search(ctx context.Context, q CandidateQuery) ([]CandidateRow, error) {
	rows, err := c.pool.Query(ctx, hybridQuery,
		formatVector(q.Embedding), q.PartNumber, q.Region, q.Limit,
		q.VectorWeight, q.SymbolicWeight, q.ExactMatchBonus)
	if err != nil {
		c.log.Error("catalog.query_failed", "error", err)
		return nil, fmt.Errorf("%w: hybrid query: %v", ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var out []CandidateRow
	for rows.Next() {
		var r CandidateRow
		var p entity.SupplierProduct
		if err := rows.Scan(
			&p.ID, &p.Name, &p.PartNumber, &p.Category, &p.Origin, &p.Price,
			&p.SupplierName, &p.SupplierEmail,
			&r.VectorScore, &r.PartScore, &r.HybridScore,
		); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", ErrCatalogUnavailable, err)
		}
		r.Product = p
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", ErrCatalogUnavailable, err)
	}

	c.log.Debug("catalog.search.ok",
		"rows", len(out),
		"region", q.Region,
		"has_part_number", q.PartNumber != "",
	)
	return out, nil
}

// formatVector renders a float32 slice as a pgvector text literal: [1,2,3].
func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
