package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// SEWPExtractor parses the SEWP (Solutions for Enterprise-Wide Procurement)
// RFQ layout: a "Reply by Date" marker in the body and pipe-delimited item
// rows (name | part number | quantity) in the body or attachments.
// Deterministic, no external calls.
type SEWPExtractor struct {
	log *slog.Logger
}

func NewSEWPExtractor(logger *slog.Logger) *SEWPExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SEWPExtractor{log: logger}
}

var (
	reDueDateLegacy = regexp.MustCompile(`Reply by Date\s*:\s*(\d{2}-[A-Za-z]{3}-\d{4})`)
	reDueDateISO    = regexp.MustCompile(`Reply by Date\s*:\s*(\d{4}-\d{2}-\d{2})`)
)

// regionMarkers are row names that carry a delivery region for the preceding
// item instead of being items themselves.
var regionMarkers = map[string]struct{}{
	"services delivery region":              {},
	"selected region for services delivery": {},
}

// Extract applies the fixed pattern rules to the body and each attachment
// text, in attachment order. Rows that fail validation are dropped and
// counted. The extractor as a whole fails only when nothing in the document
// matches the layout.
func (e *SEWPExtractor) Extract(_ context.Context, documentText string, attachmentTexts []string) (entity.ExtractionResult, error) {
	res := entity.ExtractionResult{}
	res.DueDate = e.extractDueDate(documentText)

	matched := 0
	for _, text := range append([]string{documentText}, attachmentTexts...) {
		items, rows, dropped := e.parseRows(text)
		res.Items = append(res.Items, items...)
		res.Dropped += dropped
		matched += rows
	}

	if matched == 0 && res.DueDate == nil {
		return entity.ExtractionResult{}, fmt.Errorf("no due-date marker and no item rows: %w", ErrUnstructuredDocument)
	}

	e.log.Info("extract.sewp.ok",
		"items", len(res.Items),
		"dropped", res.Dropped,
		"has_due_date", res.DueDate != nil,
	)
	return res, nil
}

// extractDueDate returns the first due-date match in the body, or nil.
// Both the legacy 28-MAY-2025 form and ISO 2025-05-28 are accepted.
func (e *SEWPExtractor) extractDueDate(text string) *time.Time {
	if m := reDueDateISO.FindStringSubmatch(text); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil {
			return &d
		}
	}
	if m := reDueDateLegacy.FindStringSubmatch(text); m != nil {
		if d, err := time.Parse("02-Jan-2006", canonicalMonth(m[1])); err == nil {
			return &d
		}
		e.log.Warn("extract.sewp.bad_due_date", "raw", m[1])
	}
	return nil
}

// canonicalMonth rewrites 28-MAY-2025 as 28-May-2025 so time.Parse accepts it.
func canonicalMonth(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[1]) != 3 {
		return s
	}
	parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
	return strings.Join(parts, "-")
}

// parseRows scans text line by line for pipe-delimited rows. It returns the
// validated items, the count of rows matching the layout, and the count of
// rows dropped by validation.
func (e *SEWPExtractor) parseRows(text string) (items []entity.LineItem, rows, dropped int) {
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rows++

		// Columns read from the right so leading columns (line numbers
		// etc.) are tolerated: ... | name | part_number | quantity.
		name := parts[len(parts)-3]
		partNumber := parts[len(parts)-2]
		quantity := parts[len(parts)-1]

		if _, ok := regionMarkers[strings.ToLower(name)]; ok {
			if len(items) > 0 {
				items[len(items)-1].DeliveryRegion = partNumber
			}
			continue
		}

		item, err := entity.Validate(map[string]any{
			"name":        name,
			"part_number": partNumber,
			"quantity":    quantity,
		})
		if err != nil {
			dropped++
			e.log.Debug("extract.sewp.row_dropped", "line", line, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, rows, dropped
}
