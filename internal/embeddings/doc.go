// Package embeddings provides embedding generation via multiple providers.
//
// Supports FastEmbed (local ONNX), OpenAI-compatible APIs via langchaingo,
// and a deterministic token-hash provider for tests and offline use. The
// Multimodal type dispatches chunks to the right sub-path keyed on their
// modality tag and parallelizes batches while preserving input order.
package embeddings
