package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// Factory maps source-type tags to extractors. Known tags get the structured
// extractor wrapped with a one-shot model fallback; unknown tags go straight
// to the model-assisted extractor. The fallback lives here, not in the
// orchestrator, because the decision depends on extractor-specific failure
// semantics.
type Factory struct {
	model *ModelExtractor
	log   *slog.Logger
}

func NewFactory(model *ModelExtractor, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{model: model, log: logger}
}

// ForSource returns the extractor for a source-type tag. Tags are
// case-insensitive; the dispatch set is closed, so a new structured layout
// extends both the tag constants and this switch.
func (f *Factory) ForSource(sourceType string) Extractor {
	switch strings.ToUpper(strings.TrimSpace(sourceType)) {
	case SourceSEWP:
		return &fallbackExtractor{
			primary:  NewSEWPExtractor(f.log),
			fallback: f.model,
			log:      f.log,
		}
	default:
		return f.model
	}
}

// fallbackExtractor runs the structured extractor and retries an
// UnstructuredDocument failure exactly once with the model-assisted
// extractor. Any other failure passes through unchanged.
type fallbackExtractor struct {
	primary  Extractor
	fallback Extractor
	log      *slog.Logger
}

func (x *fallbackExtractor) Extract(ctx context.Context, documentText string, attachmentTexts []string) (entity.ExtractionResult, error) {
	res, err := x.primary.Extract(ctx, documentText, attachmentTexts)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrUnstructuredDocument) {
		return entity.ExtractionResult{}, err
	}
	x.log.Info("extract.fallback_to_model", "reason", err.Error())
	return x.fallback.Extract(ctx, documentText, attachmentTexts)
}
