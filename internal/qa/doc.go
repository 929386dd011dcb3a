// Package qa turns retrieved chunks into grounded answers with provenance.
//
// The Engine orchestrates one query end to end: retrieval, context assembly
// under a word budget, LLM generation with a hard timeout, and a deterministic
// extractive fallback when no generator is configured or the backend fails.
// Generation failures never surface as query failures; the degraded path is
// reported through Answer.GenerationMode instead.
package qa
