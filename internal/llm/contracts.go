package llm

import "context"

// ChatClient is the text-generation collaborator: it accepts a prompt and
// returns the model's raw text response synchronously, or fails.
// Implementations must be safe for concurrent use.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ExtractionPayload is the JSON shape the model is instructed to return.
// Item fields stay loosely typed here; each item is normalized by the
// line-item validator afterwards.
type ExtractionPayload struct {
	DueDate string           `json:"due_date,omitempty"` // YYYY-MM-DD
	Items   []map[string]any `json:"items"`
}
