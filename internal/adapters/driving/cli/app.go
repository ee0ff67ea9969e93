package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/ai"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/manifest"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore/backend"
	"github.com/custodia-labs/filings-qa/internal/chunking"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
	"github.com/custodia-labs/filings-qa/internal/core/services"
	"github.com/custodia-labs/filings-qa/internal/logger"
	"github.com/custodia-labs/filings-qa/internal/normalisers/docx"
	"github.com/custodia-labs/filings-qa/internal/normalisers/markdown"
	"github.com/custodia-labs/filings-qa/internal/normalisers/plaintext"
)

// requirement says which AI services a command needs.
type requirement int

const (
	// needStorage opens config, manifest and the chunk store only.
	needStorage requirement = iota
	// needEmbedder adds the embedding service and the vector store.
	needEmbedder
	// needLLM adds the language model on top of needEmbedder.
	needLLM
)

// appOptions selects what buildApp wires.
type appOptions struct {
	Need requirement

	// Company picks the default collection name when the run targets one company.
	Company string
}

// App holds the services one command invocation uses.
type App struct {
	Config   domain.Config
	Registry driving.DocumentRegistry
	Pipeline driving.PipelineService
	Answers  driving.AnswerService
	Eval     driving.EvalService
	Chunks   driven.ChunkFileStore

	closers []func()
}

// Close releases every resource the app opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the App for a command. Tests replace it.
var newApp = buildApp

// resolveConfigPath returns --config or the default config file.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return file.DefaultConfigPath()
}

func buildApp(opts appOptions) (*App, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := file.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if manifestPath != "" {
		cfg.Storage.Manifest = manifestPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Manifest == "" {
		return nil, fmt.Errorf("%w: no manifest given; pass --manifest or set storage.manifest", domain.ErrConfiguration)
	}

	registry, err := services.LoadRegistry(manifest.New(), cfg.Storage.Manifest)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Registry: registry}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	local, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() { _ = local.Close() })
	app.Chunks = local.ChunkFileStore()
	logger.Debug("metadata database: %s", local.Path())
	if cfg.VectorStore.Backend == domain.VectorBackendMemory {
		// Memory vectors die with the process, so stored index state would
		// claim records that no longer exist.
		app.Chunks = memory.NewChunkFileStore()
		logger.Debug("memory vector store: chunk files and index state are not persisted")
	}

	extractor := services.NewExtractor(plaintext.New(), markdown.New(), docx.New())
	chunker := chunking.New()

	var embedder *services.Embedder
	if opts.Need >= needEmbedder {
		aiServices, err := ai.Init(context.Background(), cfg, opts.Need >= needLLM)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, aiServices.Close)
		for _, w := range aiServices.Warnings {
			logger.Warn("%s", w)
		}

		collection := services.CollectionName(cfg.VectorStore.Collection, opts.Company)
		vectors, err := backend.New(cfg.VectorStore, collection, local)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = vectors.Close() })
		logger.Debug("vector store: %s (collection %s)", cfg.VectorStore.Backend, collection)

		embedder = services.NewEmbedder(aiServices.EmbeddingService, vectors, app.Chunks, services.EmbedderConfigFrom(cfg))

		// LLMService is nil when it is optional and failed to start; Answer
		// then fails with ErrLLMUnavailable while Search still works.
		answers := services.NewAnswerService(aiServices.EmbeddingService, vectors, aiServices.LLMService,
			app.Chunks, services.AnswerConfigFrom(cfg))
		// Prompt overrides live next to the config file.
		prompts, err := file.NewPromptStore(filepath.Join(filepath.Dir(path), "prompts"))
		if err != nil {
			return nil, err
		}
		if err := prompts.EnsureDefaults(); err != nil {
			logger.Warn("prompt directory unavailable, using built-in prompt: %v", err)
		}
		answers.SetPromptStore(prompts)
		app.Answers = answers
		app.Eval = services.NewEvalRunner(registry, answers)
	}

	app.Pipeline = services.NewPipeline(registry, extractor, chunker, app.Chunks, embedder, services.PipelineConfigFrom(cfg))

	ok = true
	return app, nil
}
