package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/procurex/rfq-matcher/internal/entity"
	"github.com/procurex/rfq-matcher/internal/llm"
)

// ModelConfig bounds the model-assisted extractor's retry loop.
type ModelConfig struct {
	MaxAttempts int           // format-retry bound, default 3
	Backoff     time.Duration // base delay between attempts, doubles each retry
	CallTimeout time.Duration // hard per-call timeout, distinct from the retry bound
}

// ModelExtractor is the fallback extractor for unstructured documents. It
// prompts the text-generation service and enforces the JSON output contract:
// a malformed or schema-breaking response is retried with the same prompt up
// to the configured bound. Retries target the format contract only; a
// transport failure aborts immediately so callers can react differently.
type ModelExtractor struct {
	client llm.ChatClient
	cfg    ModelConfig
	log    *slog.Logger
}

func NewModelExtractor(client llm.ChatClient, cfg ModelConfig, logger *slog.Logger) *ModelExtractor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelExtractor{client: client, cfg: cfg, log: logger}
}

// Extract assembles one prompt from the document and attachments, then runs
// the bounded retry loop. A partially valid response is not a failure:
// invalid items are dropped (not retried) and counted.
func (e *ModelExtractor) Extract(ctx context.Context, documentText string, attachmentTexts []string) (entity.ExtractionResult, error) {
	system := llm.BuildSystemPrompt()
	user := llm.BuildUserPrompt(documentText, attachmentTexts)
	schema := llm.BuildExtractionJSONSchema()

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return entity.ExtractionResult{}, err
		}

		raw, err := e.complete(ctx, system, user)
		if err != nil {
			// Service failure, not a format failure: retrying the same
			// prompt against a dead endpoint buys nothing.
			return entity.ExtractionResult{}, fmt.Errorf("text-generation call: %w", err)
		}

		payload, err := decodePayload(schema, raw)
		if err != nil {
			lastErr = err
			e.log.Warn("extract.model.malformed_response",
				"attempt", attempt,
				"max_attempts", e.cfg.MaxAttempts,
				"error", err,
			)
			if attempt < e.cfg.MaxAttempts {
				if err := sleepBackoff(ctx, e.cfg.Backoff, attempt); err != nil {
					return entity.ExtractionResult{}, err
				}
			}
			continue
		}

		res := e.assemble(payload)
		e.log.Info("extract.model.ok",
			"attempt", attempt,
			"items", len(res.Items),
			"dropped", res.Dropped,
			"has_due_date", res.DueDate != nil,
		)
		return res, nil
	}

	return entity.ExtractionResult{}, fmt.Errorf("%w after %d attempts: %v",
		ErrModelExtractionFailed, e.cfg.MaxAttempts, lastErr)
}

func (e *ModelExtractor) complete(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.client.Complete(callCtx, system, user)
}

// decodePayload enforces the format contract: strip fences, validate against
// the schema, decode, and check the due date is a real calendar date.
func decodePayload(schema map[string]any, raw string) (llm.ExtractionPayload, error) {
	cleaned := []byte(llm.StripFences(raw))
	if err := llm.ValidateAgainstSchema(schema, cleaned); err != nil {
		return llm.ExtractionPayload{}, err
	}
	var payload llm.ExtractionPayload
	if err := json.Unmarshal(cleaned, &payload); err != nil {
		return llm.ExtractionPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if payload.DueDate != "" {
		if _, err := time.Parse("2006-01-02", payload.DueDate); err != nil {
			return llm.ExtractionPayload{}, fmt.Errorf("invalid due_date %q: %w", payload.DueDate, err)
		}
	}
	return payload, nil
}

func (e *ModelExtractor) assemble(payload llm.ExtractionPayload) entity.ExtractionResult {
	res := entity.ExtractionResult{}
	if payload.DueDate != "" {
		d, _ := time.Parse("2006-01-02", payload.DueDate)
		res.DueDate = &d
	}
	for i, raw := range payload.Items {
		item, err := entity.Validate(raw)
		if err != nil {
			res.Dropped++
			e.log.Warn("extract.model.item_dropped", "index", i, "error", err)
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res
}

// sleepBackoff waits baseDelay * 2^(attempt-1), returning early if ctx ends.
func sleepBackoff(ctx context.Context, baseDelay time.Duration, attempt int) error {
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
