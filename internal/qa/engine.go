package qa

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

var qaTracer = otel.Tracer("docqa.qa")

// GenerationMode reports which path produced an answer's text.
type GenerationMode string

const (
	// ModeLLM means the configured generator produced the answer.
	ModeLLM GenerationMode = "llm"

	// ModeFallback means the answer was extracted deterministically from the
	// retrieved chunks, either because no generator is configured or because
	// the generation backend failed or timed out.
	ModeFallback GenerationMode = "fallback"
)

// NoContextAnswer is returned as Answer.Text when retrieval finds nothing.
// An empty result set is a defined outcome, not an error.
const NoContextAnswer = "I couldn't find any relevant information in the indexed documents to answer your question. Please try rephrasing or asking about a different topic."

// Source identifies one provenance entry backing an answer.
type Source struct {
	DocID    string         `json:"doc_id"`
	Page     int            `json:"page"`
	Modality chunk.Modality `json:"modality"`
	Snippet  string         `json:"snippet"`
}

// Answer is the result of one query. It is created per query and never
// persisted.
type Answer struct {
	Text           string         `json:"text"`
	Sources        []Source       `json:"sources"`
	Confidence     float32        `json:"confidence"`
	GenerationMode GenerationMode `json:"generation_mode"`
	RetrievalTime  time.Duration  `json:"retrieval_time"`
	GenerationTime time.Duration  `json:"generation_time"`
}

// Searcher is the retrieval capability the engine depends on.
// *retriever.Retriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, queryText string, k int, filter vectorstore.Filter) ([]vectorstore.SearchResult, error)
}

// Generator is the answer-generation capability. Implementations are expected
// to fail (return an error) on backend errors and context timeouts; the engine
// absorbs those failures into the fallback path.
type Generator interface {
	Generate(ctx context.Context, query, contextText string) (string, error)
}

// Config controls answer generation.
type Config struct {
	// TopK is the number of chunks retrieved per query.
	TopK int `koanf:"top_k"`

	// MaxContextWords bounds the assembled context, counted in whitespace
	// separated words. Chunks past the budget are dropped whole, lowest
	// ranked first.
	MaxContextWords int `koanf:"max_context_words"`

	// GenerationTimeout bounds one generator call. On expiry the engine
	// falls back to extraction.
	GenerationTimeout time.Duration `koanf:"generation_timeout"`

	// MaxSources caps the distinct (doc, page) provenance entries reported.
	MaxSources int `koanf:"max_sources"`

	// SnippetLength is the maximum snippet size per source, in runes.
	SnippetLength int `koanf:"snippet_length"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.MaxContextWords == 0 {
		c.MaxContextWords = 1200
	}
	if c.GenerationTimeout == 0 {
		c.GenerationTimeout = 30 * time.Second
	}
	if c.MaxSources == 0 {
		c.MaxSources = 5
	}
	if c.SnippetLength == 0 {
		c.SnippetLength = 300
	}
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d", c.TopK)
	}
	if c.MaxContextWords < 0 {
		return fmt.Errorf("max_context_words must be non-negative, got %d", c.MaxContextWords)
	}
	if c.GenerationTimeout < 0 {
		return fmt.Errorf("generation_timeout must be non-negative, got %s", c.GenerationTimeout)
	}
	return nil
}

// Engine answers questions over an indexed document corpus.
type Engine struct {
	config    Config
	retriever Searcher
	generator Generator
	metrics   *Metrics
	logger    *zap.Logger
}

// NewEngine creates a QA engine. generator may be nil, in which case every
// answer uses the extractive fallback.
func NewEngine(config Config, retriever Searcher, generator Generator, logger *zap.Logger) (*Engine, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Engine{
		config:    config,
		retriever: retriever,
		generator: generator,
		metrics:   NewMetrics(logger),
		logger:    logger,
	}, nil
}

// Answer runs one query through retrieval, context assembly, and generation.
//
// Retrieval errors (embedding backend down, store integrity) propagate to the
// caller. Generation errors do not: they route to the fallback extractor and
// are surfaced via GenerationMode. k <= 0 selects the configured TopK.
func (e *Engine) Answer(ctx context.Context, queryText string, k int) (Answer, error) {
	ctx, span := qaTracer.Start(ctx, "Engine.Answer")
	defer span.End()

	if k <= 0 {
		k = e.config.TopK
	}
	span.SetAttributes(attribute.Int("k", k))

	retrievalStart := time.Now()
	results, err := e.retriever.Search(ctx, queryText, k, nil)
	retrievalTime := time.Since(retrievalStart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}

	if len(results) == 0 {
		e.logger.Warn("no chunks retrieved", zap.String("query", queryText))
		span.SetAttributes(attribute.Bool("empty_result", true))
		span.SetStatus(codes.Ok, "no results")
		answer := Answer{
			Text:           NoContextAnswer,
			Sources:        []Source{},
			Confidence:     0,
			GenerationMode: ModeFallback,
			RetrievalTime:  retrievalTime,
		}
		e.metrics.RecordAnswer(ctx, ModeFallback, retrievalTime, 0, false)
		return answer, nil
	}

	contextText := buildContext(results, e.config.MaxContextWords)
	sources := extractSources(results, e.config.MaxSources, e.config.SnippetLength)
	confidence := confidenceScore(results)

	generationStart := time.Now()
	text, mode, genFailed := e.generate(ctx, queryText, contextText, results)
	generationTime := time.Since(generationStart)

	span.SetAttributes(
		attribute.Int("results_count", len(results)),
		attribute.String("generation_mode", string(mode)),
		attribute.Float64("confidence", float64(confidence)),
	)
	span.SetStatus(codes.Ok, "success")

	e.metrics.RecordAnswer(ctx, mode, retrievalTime, generationTime, genFailed)
	e.logger.Debug("answered query",
		zap.String("mode", string(mode)),
		zap.Int("sources", len(sources)),
		zap.Duration("retrieval_time", retrievalTime),
		zap.Duration("generation_time", generationTime),
	)

	return Answer{
		Text:           text,
		Sources:        sources,
		Confidence:     confidence,
		GenerationMode: mode,
		RetrievalTime:  retrievalTime,
		GenerationTime: generationTime,
	}, nil
}

// generate attempts the configured generator under a timeout and falls back
// to extraction on any failure. genFailed reports a generator that was
// configured but did not produce an answer.
func (e *Engine) generate(ctx context.Context, queryText, contextText string, results []vectorstore.SearchResult) (text string, mode GenerationMode, genFailed bool) {
	if e.generator == nil {
		return extractAnswer(queryText, results), ModeFallback, false
	}

	genCtx, cancel := context.WithTimeout(ctx, e.config.GenerationTimeout)
	defer cancel()

	text, err := e.generator.Generate(genCtx, queryText, contextText)
	if err != nil {
		e.logger.Warn("generation failed, using extractive fallback", zap.Error(err))
		return extractAnswer(queryText, results), ModeFallback, true
	}
	return text, ModeLLM, false
}

// confidenceScore averages the top three result scores, clipped to [0,1].
func confidenceScore(results []vectorstore.SearchResult) float32 {
	n := len(results)
	if n == 0 {
		return 0
	}
	if n > 3 {
		n = 3
	}
	var sum float32
	for _, r := range results[:n] {
		sum += r.Score
	}
	c := sum / float32(n)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// extractSources builds the provenance list: distinct (doc, page) pairs in
// rank order, capped at maxSources.
func extractSources(results []vectorstore.SearchResult, maxSources, snippetLength int) []Source {
	type key struct {
		doc  string
		page int
	}
	seen := make(map[key]struct{}, len(results))
	sources := make([]Source, 0, maxSources)

	for _, r := range results {
		k := key{doc: r.Record.SourceDocID, page: r.Record.PageNumber}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sources = append(sources, Source{
			DocID:    r.Record.SourceDocID,
			Page:     r.Record.PageNumber,
			Modality: r.Record.Modality,
			Snippet:  snippet(r.Record.Payload, snippetLength),
		})
		if len(sources) == maxSources {
			break
		}
	}
	return sources
}

// snippet flattens newlines and truncates to limit runes.
func snippet(payload string, limit int) string {
	flat := make([]rune, 0, limit)
	for _, r := range payload {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
		if len(flat) == limit {
			return string(flat) + "..."
		}
	}
	return string(flat)
}
