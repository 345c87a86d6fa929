package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/procurex/rfq-matcher/internal/entity"
	"github.com/procurex/rfq-matcher/internal/extract"
)

// Matcher is what the orchestrator needs from the matching engine.
type Matcher interface {
	Match(ctx context.Context, item entity.LineItem) ([]entity.MatchCandidate, error)
}

// Document is one unit of work from the document source collaborator: cleaned
// body text, attachment texts in order, a source-type tag, and an identity
// for error reporting.
type Document struct {
	ID              string
	Text            string
	AttachmentTexts []string
	SourceType      string
}

// Result is the per-document output: the extracted due date and one
// MatchReport per validated line item, in line-item order.
type Result struct {
	DueDate *time.Time
	Reports []entity.MatchReport
	Dropped int
}

// Orchestrator sequences extraction and matching for one document at a time.
// Line items within a document are matched concurrently on a bounded worker
// pool; report order always equals line-item order.
type Orchestrator struct {
	factory *extract.Factory
	matcher Matcher
	pool    *ants.Pool
	log     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the matching worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.log = logger
		return nil
	}
}

func NewOrchestrator(factory *extract.Factory, matcher Matcher, opts ...Option) (*Orchestrator, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		factory: factory,
		matcher: matcher,
		pool:    pool,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Release()
			return nil, err
		}
	}
	return o, nil
}

// Release frees the worker pool. The orchestrator must not be used after.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// Run processes one document end to end: select an extractor for the source
// type, extract the due date and line items, then match every item against
// the catalog. An extraction failure fails the whole document; a matching
// failure for one item records an empty report for that item and the rest
// proceed. Cancellation is honored between items.
func (o *Orchestrator) Run(ctx context.Context, doc Document) (Result, error) {
	extractor := o.factory.ForSource(doc.SourceType)
	extracted, err := extractor.Extract(ctx, doc.Text, doc.AttachmentTexts)
	if err != nil {
		return Result{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}

	res := Result{
		DueDate: extracted.DueDate,
		Dropped: extracted.Dropped,
	}
	if len(extracted.Items) == 0 {
		o.log.Warn("pipeline.no_items",
			"document_id", doc.ID,
			"dropped", extracted.Dropped,
		)
		return res, nil
	}

	res.Reports = make([]entity.MatchReport, len(extracted.Items))
	var wg sync.WaitGroup
	for i, item := range extracted.Items {
		if err := ctx.Err(); err != nil {
			// Reports built so far stay consistent; the caller decides
			// whether to keep or discard them.
			wg.Wait()
			res.Reports = res.Reports[:i]
			return res, fmt.Errorf("document %s: %w", doc.ID, err)
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			o.matchOne(ctx, doc.ID, i, item, res.Reports)
		}
		if err := o.pool.Submit(task); err != nil {
			// Pool saturated or released; run inline rather than dropping
			// the item.
			task()
		}
	}
	wg.Wait()
	return res, nil
}

func (o *Orchestrator) matchOne(ctx context.Context, docID string, index int, item entity.LineItem, reports []entity.MatchReport) {
	candidates, err := o.matcher.Match(ctx, item)
	if err != nil {
		o.log.Warn("pipeline.match_failed",
			"document_id", docID,
			"item_index", index,
			"item", item.Name,
			"error", err,
		)
		reports[index] = entity.MatchReport{Item: item, Err: err}
		return
	}
	o.log.Info("pipeline.match.ok",
		"document_id", docID,
		"item_index", index,
		"item", item.Name,
		"candidates", len(candidates),
	)
	reports[index] = entity.MatchReport{Item: item, Candidates: candidates}
}
