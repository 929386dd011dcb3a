// Package vectorstore provides the multimodal vector index: record storage,
// cosine similarity search, and hybrid (vector + lexical) retrieval.
//
// Two implementations are provided: MemoryStore, an in-process index with
// snapshot persistence, and ChromemStore, backed by the chromem-go embedded
// vector database. Both enforce a single embedding dimension per store and
// produce deterministic, totally ordered rankings.
package vectorstore
