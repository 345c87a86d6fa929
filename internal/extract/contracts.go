package extract

import (
	"context"
	"errors"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// Source tags name known structured layouts. Unknown tags fall through to
// the model-assisted extractor.
const (
	SourceSEWP    = "SEWP"
	SourceGeneric = "GENERIC"
)

// Extractor turns one document (body plus attachment texts, in order) into a
// validated ExtractionResult.
type Extractor interface {
	Extract(ctx context.Context, documentText string, attachmentTexts []string) (entity.ExtractionResult, error)
}

var (
	// ErrUnstructuredDocument means the document did not match the expected
	// structured layout at all; the caller may fall back to the
	// model-assisted extractor.
	ErrUnstructuredDocument = errors.New("document does not match structured layout")

	// ErrModelExtractionFailed means the model never produced parseable,
	// schema-conforming JSON within the retry bound. Fatal for the
	// document's extraction; never fatal for the process.
	ErrModelExtractionFailed = errors.New("model extraction failed")
)
