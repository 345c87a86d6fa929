package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/procurex/rfq-matcher/internal/common"
	embedopenai "github.com/procurex/rfq-matcher/internal/embed/openai"
	"github.com/procurex/rfq-matcher/internal/export"
	"github.com/procurex/rfq-matcher/internal/extract"
	llmopenai "github.com/procurex/rfq-matcher/internal/llm/openai"
	"github.com/procurex/rfq-matcher/internal/match"
	"github.com/procurex/rfq-matcher/internal/pipeline"
	"github.com/procurex/rfq-matcher/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// attachList collects repeated -attach flags in order.
type attachList []string

func (a *attachList) String() string { return strings.Join(*a, ",") }
func (a *attachList) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func main() {
	var attachments attachList
	var (
		docPath = flag.String("doc", "", "path to the RFQ document text (required)")
		source  = flag.String("source", "SEWP", "document source type tag")
		docID   = flag.String("id", "", "document identifier (defaults to the doc filename)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults next to the doc)")
	)
	flag.Var(&attachments, "attach", "path to an attachment text, repeatable, order preserved")
	flag.Parse()

	if *docPath == "" {
		printError("Error: -doc is required\n")
		os.Exit(1)
	}
	if *docID == "" {
		*docID = filepath.Base(*docPath)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*docPath, filepath.Ext(*docPath)) + "-matches.xlsx"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using process environment")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	docText, err := os.ReadFile(*docPath)
	if err != nil {
		logger.Error("failed to read document", "path", *docPath, "error", err)
		os.Exit(1)
	}
	var attachTexts []string
	for _, path := range attachments {
		text, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read attachment", "path", path, "error", err)
			os.Exit(1)
		}
		attachTexts = append(attachTexts, string(text))
	}

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 2*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	catalog := repository.NewPostgresCatalog(pool, logger)

	embedder, err := embedopenai.NewEmbedder(embedopenai.Config{
		Host:  cfg.Embedding.Host,
		Model: cfg.Embedding.Model,
		Token: cfg.Embedding.Token,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize embedder", "error", err)
		os.Exit(1)
	}

	chatClient := llmopenai.NewClient(llmopenai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	model := extract.NewModelExtractor(chatClient, extract.ModelConfig{
		MaxAttempts: cfg.LLM.MaxAttempts,
		Backoff:     cfg.LLM.Backoff,
		CallTimeout: cfg.LLM.Timeout,
	}, logger)
	factory := extract.NewFactory(model, logger)

	engine := match.NewEngine(embedder, catalog, match.Config{
		VectorWeight:        cfg.Match.VectorWeight,
		SymbolicWeight:      cfg.Match.SymbolicWeight,
		ExactMatchBonus:     cfg.Match.ExactMatchBonus,
		SimilarityThreshold: cfg.Match.SimilarityThreshold,
		TopK:                cfg.Match.TopK,
		CandidatePool:       cfg.Match.CandidatePool,
	}, logger)

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Pipeline.Workers > 0 {
		opts = append(opts, pipeline.WithPoolSize(cfg.Pipeline.Workers))
	}
	orch, err := pipeline.NewOrchestrator(factory, engine, opts...)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer orch.Release()

	logger.Info("processing document",
		"id", *docID,
		"source", *source,
		"attachments", len(attachTexts),
	)
	result, err := orch.Run(ctx, pipeline.Document{
		ID:              *docID,
		Text:            string(docText),
		AttachmentTexts: attachTexts,
		SourceType:      *source,
	})
	if err != nil {
		logger.Error("pipeline failed", "id", *docID, "error", err)
		os.Exit(1)
	}

	matched := 0
	failed := 0
	for _, rep := range result.Reports {
		switch {
		case rep.Err != nil:
			failed++
		case len(rep.Candidates) > 0:
			matched++
		}
	}

	exportService := export.NewService(logger)
	xlsxBytes, err := exportService.WriteWorkbook(result.DueDate, result.Reports)
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("document complete",
		"id", *docID,
		"items", len(result.Reports),
		"matched", matched,
		"match_failures", failed,
		"dropped_rows", result.Dropped,
		"output_file", *out,
	)

	fmt.Printf("RFQ processing complete!\n")
	fmt.Printf("- Line items: %d\n", len(result.Reports))
	fmt.Printf("- Matched: %d\n", matched)
	fmt.Printf("- Match failures: %d\n", failed)
	fmt.Printf("- Dropped rows: %d\n", result.Dropped)
	if result.DueDate != nil {
		fmt.Printf("- Reply by: %s\n", result.DueDate.Format("2006-01-02"))
	}
	fmt.Printf("- Output: %s\n", *out)
}
