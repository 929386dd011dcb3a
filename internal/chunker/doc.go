// Package chunker splits parsed document content into chunks ready for
// embedding and indexing. Text is split on sentence boundaries under a word
// budget with a trailing-sentence overlap between adjacent chunks; tables are
// flattened to pipe-delimited text so their cells participate in lexical
// matching.
package chunker
