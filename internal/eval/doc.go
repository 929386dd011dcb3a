// Package eval benchmarks end-to-end QA quality over a fixed set of test
// queries. Accuracy is a token-overlap score between the generated and
// expected answers; per-query retrieval and generation timings come straight
// from the engine.
package eval
