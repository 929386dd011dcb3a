package qa

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOpenAIGenModel = "gpt-4o-mini"

// LangChainGenerator implements Generator over any langchaingo chat model.
type LangChainGenerator struct {
	llm       llms.Model
	maxTokens int
}

// NewLangChainGenerator wraps an existing langchaingo model.
func NewLangChainGenerator(llm llms.Model, maxTokens int) *LangChainGenerator {
	if maxTokens == 0 {
		maxTokens = defaultGenMaxTokens
	}
	return &LangChainGenerator{llm: llm, maxTokens: maxTokens}
}

// NewOpenAIGenerator creates a generator backed by an OpenAI-compatible API.
func NewOpenAIGenerator(cfg GeneratorConfig) (*LangChainGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIGenModel
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return NewLangChainGenerator(llm, cfg.MaxTokens), nil
}

// Generate produces an answer grounded in contextText.
func (g *LangChainGenerator) Generate(ctx context.Context, query, contextText string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, buildPrompt(query, contextText),
		llms.WithMaxTokens(g.maxTokens),
		llms.WithTemperature(0.3),
	)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return text, nil
}

var _ Generator = (*LangChainGenerator)(nil)
