package openai

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/procurex/rfq-matcher/internal/embed"
)

// Config for the OpenAI-compatible embedding client.
type Config struct {
	Host  string // base URL, e.g. "https://api.openai.com/v1" or a local server
	Model string // e.g. "text-embedding-3-small"
	Token string // API token; "none" works for local servers without auth
}

// Embedder implements embed.Embedder over an OpenAI-compatible embeddings API.
type Embedder struct {
	embedder embeddings.Embedder
	log      *slog.Logger
}

func NewEmbedder(cfg Config, logger *slog.Logger) (embed.Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Token == "" {
		cfg.Token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.Host != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Host))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	wrapped, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: wrapped,
		log:      logger.With("component", "openai-embedder"),
	}, nil
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.log.Error("embed.failed", "length", len(text), "error", err)
		return nil, err
	}
	if len(vectors) == 0 {
		e.log.Warn("embed.empty_result")
		return []float32{}, nil
	}
	return vectors[0], nil
}
