package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"pdfqa/internal/answer"
	answergemini "pdfqa/internal/answer/gemini"
	answerollama "pdfqa/internal/answer/ollama"
	"pdfqa/internal/config"
	"pdfqa/internal/describe"
	describegemini "pdfqa/internal/describe/gemini"
	"pdfqa/internal/domain"
	"pdfqa/internal/embedding"
	embedollama "pdfqa/internal/embedding/ollama"
	embedopenai "pdfqa/internal/embedding/openai"
	"pdfqa/internal/index"
	"pdfqa/internal/index/memory"
	"pdfqa/internal/index/opensearch"
	"pdfqa/internal/ingest"
	"pdfqa/internal/normalize"
	"pdfqa/internal/partition/unstructured"
	"pdfqa/internal/retrieval"
	"pdfqa/internal/service"
	"pdfqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, collection, strategy, model string
	var force bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pdfqa/config.yaml if not provided)")
	flag.StringVar(&collection, "collection", "", "Query an already ingested collection instead of a PDF")
	flag.StringVar(&strategy, "strategy", "", "Initial search strategy: hybrid, keyword or semantic")
	flag.StringVar(&model, "model", "", "Initial answer model (defaults to the first available)")
	flag.BoolVar(&force, "force", false, "Re-ingest even if the collection already exists")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 && collection == "" {
		fmt.Println("Usage: pdfqa [--config=config.yaml] [--force] document.pdf")
		fmt.Println("       pdfqa [--config=config.yaml] --collection=name")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.Logger{
		Level:  log.ParseLevel(cfg.Logging.Level),
		Writer: &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true},
	}
	ctx := context.Background()

	// Assemble components
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "ollama", "":
		emb = embedollama.NewClient(embedollama.Config{
			BaseURL:   cfg.Embedder.Ollama.BaseURL,
			Model:     cfg.Embedder.Ollama.Model,
			Dimension: cfg.Index.Dimension,
			Timeout:   time.Duration(cfg.Embedder.Ollama.TimeoutSecs) * time.Second,
		})
	case "openai":
		emb, err = embedopenai.NewClient(embedopenai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Dimension: cfg.Index.Dimension,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("openai embedder init failed")
		}
	default:
		logger.Fatal().Str("type", cfg.Embedder.Type).Msg("unknown embedder")
	}

	var store index.Store
	switch cfg.Index.Type {
	case "opensearch", "":
		store, err = opensearch.NewStore(opensearch.Config{
			Addresses:  cfg.Index.OpenSearch.Addresses,
			Username:   cfg.Index.OpenSearch.Username,
			Password:   cfg.Index.OpenSearch.Password,
			Timeout:    time.Duration(cfg.Index.OpenSearch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Index.OpenSearch.MaxRetries,
			Logger:     logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("opensearch store init failed")
		}
	case "memory":
		store = memory.NewStore()
	default:
		logger.Fatal().Str("type", cfg.Index.Type).Msg("unknown index store")
	}
	if err := store.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("index store unreachable")
	}

	var describer describe.Describer
	switch cfg.Describer.Type {
	case "gemini", "":
		client, err := describegemini.NewClient(ctx, describegemini.Config{
			APIKeyEnv: cfg.Describer.Gemini.APIKeyEnv,
			Model:     cfg.Describer.Gemini.Model,
			Timeout:   time.Duration(cfg.Describer.Gemini.TimeoutSecs) * time.Second,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini describer init failed")
		}
		describer = client
	case "none":
		describer = nil
	default:
		logger.Fatal().Str("type", cfg.Describer.Type).Msg("unknown describer")
	}

	partitioner := unstructured.NewClient(unstructured.Config{
		BaseURL:  cfg.Partitioner.BaseURL,
		Strategy: cfg.Partitioner.Strategy,
		Chunking: unstructured.ChunkingOptions{
			MaxCharacters:     cfg.Partitioner.MaxCharacters,
			CombineUnderChars: cfg.Partitioner.CombineUnderChars,
			NewAfterChars:     cfg.Partitioner.NewAfterChars,
		},
		Timeout: time.Duration(cfg.Partitioner.TimeoutSecs) * time.Second,
		Logger:  logger,
	})

	genTimeout := time.Duration(cfg.Generator.TimeoutSecs) * time.Second
	var generators []answer.Generator
	if gen, err := answergemini.NewGenerator(ctx, answergemini.Config{
		Model:   cfg.Generator.GeminiModel,
		Timeout: genTimeout,
	}); err != nil {
		logger.Warn().Err(err).Msg("gemini generator unavailable")
	} else {
		generators = append(generators, gen)
	}
	generators = append(generators, answerollama.NewGenerator(answerollama.Config{
		BaseURL: cfg.Generator.OllamaURL,
		Model:   cfg.Generator.OllamaModel,
		Timeout: genTimeout,
	}))

	normalizer := normalize.New(describer, logger)
	pipeline := ingest.NewPipeline(store, emb, cfg.Index.Dimension, logger)
	retriever := retrieval.NewEngine(store, emb, logger)
	answerer := answer.NewEngine(retriever, generators, cfg.Generator.ContextTopK, logger)
	svc := service.New(partitioner, normalizer, pipeline, answerer, logger)

	if len(inputs) > 0 {
		name, report, err := svc.Ingest(ctx, inputs[0], force)
		if err != nil {
			logger.Fatal().Err(err).Msg("ingest failed")
		}
		if report.Status == ingest.StatusSkipped {
			fmt.Printf("Collection %q already exists, skipping ingestion (use --force to rebuild).\n", name)
		} else {
			fmt.Printf("Ingested %d chunks into %q (%d skipped).\n", report.Total(), name, report.Skipped)
		}
		collection = name
	}

	m := tui.New(svc, collection, domain.ParseStrategy(strategy), model)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Fatal().Err(err).Msg("tui failed")
	}
}
