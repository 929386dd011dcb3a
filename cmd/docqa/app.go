package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunker"
	"github.com/fyrsmithlabs/docqa/internal/config"
	"github.com/fyrsmithlabs/docqa/internal/embeddings"
	"github.com/fyrsmithlabs/docqa/internal/logging"
	"github.com/fyrsmithlabs/docqa/internal/qa"
	"github.com/fyrsmithlabs/docqa/internal/retriever"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// app wires the configured components for one CLI invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     vectorstore.Store
	memory    *vectorstore.MemoryStore // non-nil only for the memory backend
	embedder  *embeddings.Multimodal
	chunker   *chunker.Chunker
	indexer   *retriever.Indexer
	retriever *retriever.Retriever
	engine    *qa.Engine
}

// newApp builds the full pipeline from configuration. The memory backend
// loads its snapshot if one exists at the configured path.
func newApp() (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}

	textProvider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		CacheDir:  cfg.Embedding.CacheDir,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	embedder, err := embeddings.NewMultimodal(embeddings.MultimodalConfig{
		Timeout:     cfg.Embedding.Timeout,
		Concurrency: cfg.Embedding.Concurrency,
	}, textProvider, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, embedder: embedder}

	switch cfg.Store.Backend {
	case "memory":
		store, err := vectorstore.NewMemoryStore(vectorstore.MemoryConfig{
			VectorSize:      cfg.Store.VectorSize,
			MaxPayloadBytes: cfg.Store.MaxPayloadBytes,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating memory store: %w", err)
		}
		if path := cfg.Store.SnapshotPath; path != "" {
			if _, statErr := os.Stat(path); statErr == nil {
				if err := store.Load(path); err != nil {
					return nil, fmt.Errorf("loading snapshot: %w", err)
				}
			}
		}
		a.store, a.memory = store, store
	case "chromem":
		vectorSize := cfg.Store.VectorSize
		if vectorSize == 0 {
			// The chromem backend is fixed-dimension, so size it from the
			// configured embedder rather than a hardcoded default.
			vectorSize = embedder.Dimension()
		}
		store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path:       cfg.Store.Path,
			Compress:   cfg.Store.Compress,
			Collection: cfg.Store.Collection,
			VectorSize: vectorSize,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating chromem store: %w", err)
		}
		a.store = store
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}

	a.chunker, err = chunker.New(chunker.Config{
		ChunkWords:       cfg.Chunker.ChunkWords,
		OverlapSentences: cfg.Chunker.OverlapSentences,
	}, logger)
	if err != nil {
		return nil, err
	}

	a.indexer, err = retriever.NewIndexer(a.store, embedder, logger)
	if err != nil {
		return nil, err
	}

	a.retriever, err = retriever.New(retriever.Config{
		DefaultK: cfg.Retriever.DefaultK,
		Alpha:    cfg.Retriever.Alpha,
	}, a.store, embedder, logger)
	if err != nil {
		return nil, err
	}

	generator, err := qa.NewGenerator(qa.GeneratorConfig{
		Provider:  cfg.Generator.Provider,
		Model:     cfg.Generator.Model,
		APIKey:    cfg.Generator.APIKey,
		BaseURL:   cfg.Generator.BaseURL,
		MaxTokens: cfg.Generator.MaxTokens,
		Timeout:   cfg.Generator.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	a.engine, err = qa.NewEngine(qa.Config{
		TopK:              cfg.QA.TopK,
		MaxContextWords:   cfg.QA.MaxContextWords,
		GenerationTimeout: cfg.QA.GenerationTimeout,
		MaxSources:        cfg.QA.MaxSources,
		SnippetLength:     cfg.QA.SnippetLength,
	}, a.retriever, generator, logger)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// saveSnapshot persists the memory backend's index if a snapshot path is
// configured. The chromem backend persists on its own.
func (a *app) saveSnapshot() error {
	if a.memory == nil || a.cfg.Store.SnapshotPath == "" {
		return nil
	}
	return a.memory.Save(a.cfg.Store.SnapshotPath)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	if err := a.embedder.Close(); err != nil {
		a.logger.Warn("closing embedder", zap.Error(err))
	}
	_ = a.logger.Sync()
}
