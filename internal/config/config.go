// Package config provides configuration loading for docqa.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables with the DOCQA_ prefix. Every field has a working default so an
// empty configuration yields a functional in-memory deployment.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete docqa configuration.
type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Retriever RetrieverConfig `koanf:"retriever"`
	QA        QAConfig        `koanf:"qa"`
	Generator GeneratorConfig `koanf:"generator"`
	Chunker   ChunkerConfig   `koanf:"chunker"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	// Backend selects the store implementation: "memory" or "chromem".
	Backend string `koanf:"backend"`

	// Path is the chromem persistence directory. Empty keeps chromem
	// in memory.
	Path string `koanf:"path"`

	// Compress enables gzip compression of persisted chromem data.
	Compress bool `koanf:"compress"`

	// Collection is the chromem collection name.
	Collection string `koanf:"collection"`

	// VectorSize is the embedding dimension. 0 lets the memory backend
	// infer it from the first add.
	VectorSize int `koanf:"vector_size"`

	// MaxPayloadBytes truncates stored payloads (memory backend only).
	MaxPayloadBytes int `koanf:"max_payload_bytes"`

	// SnapshotPath is where the memory backend saves and loads its index.
	SnapshotPath string `koanf:"snapshot_path"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider    string        `koanf:"provider"` // "fastembed", "openai", or "hash"
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	CacheDir    string        `koanf:"cache_dir"`
	Dimension   int           `koanf:"dimension"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

// RetrieverConfig holds retrieval configuration.
type RetrieverConfig struct {
	DefaultK int     `koanf:"default_k"`
	Alpha    float64 `koanf:"alpha"`
}

// QAConfig holds answer-generation configuration.
type QAConfig struct {
	TopK              int           `koanf:"top_k"`
	MaxContextWords   int           `koanf:"max_context_words"`
	GenerationTimeout time.Duration `koanf:"generation_timeout"`
	MaxSources        int           `koanf:"max_sources"`
	SnippetLength     int           `koanf:"snippet_length"`
}

// GeneratorConfig holds LLM backend configuration. An empty provider disables
// generation; answers then use the extractive fallback.
type GeneratorConfig struct {
	Provider  string        `koanf:"provider"` // "anthropic" or "openai"
	Model     string        `koanf:"model"`
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`
}

// ChunkerConfig holds document chunking configuration.
type ChunkerConfig struct {
	ChunkWords       int `koanf:"chunk_words"`
	OverlapSentences int `koanf:"overlap_sentences"`
}

// LoggingConfig holds logger construction settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" or "console"
}

// applyDefaults fills in zero-valued fields across the tree. Component-level
// defaults live in each package's ApplyDefaults; the values here only cover
// knobs that exist purely at the configuration surface.
func applyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "fastembed"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks cross-field constraints the component configs cannot see.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "chromem":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	switch c.Embedding.Provider {
	case "fastembed", "openai", "hash":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}

	switch c.Generator.Provider {
	case "", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown generator provider: %q", c.Generator.Provider)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}

	if c.Retriever.Alpha < 0 || c.Retriever.Alpha > 1 {
		return fmt.Errorf("retriever alpha must be in [0,1], got %v", c.Retriever.Alpha)
	}
	return nil
}
