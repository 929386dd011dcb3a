package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// defaultHashDimension matches the bge-small family so hash-built indexes
// can be swapped for real ones without re-creating the store.
const defaultHashDimension = 384

// HashProvider generates deterministic bag-of-words embeddings by hashing
// tokens into a fixed-dimension vector. Texts sharing tokens get similar
// directions, which is enough for tests and offline development without a
// model download. Not a substitute for a learned embedding model.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash provider. A non-positive dimension falls
// back to the default.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = defaultHashDimension
	}
	return &HashProvider{dimension: dimension}
}

// EmbedDocuments generates embeddings for multiple texts, order-preserving.
func (p *HashProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embed(text)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *HashProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return p.embed(text), nil
}

// embed hashes each token into a bucket and L2-normalizes the counts.
func (p *HashProvider) embed(text string) []float32 {
	vector := make([]float32, p.dimension)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?()[]\"'")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[h.Sum32()%uint32(p.dimension)]++
	}

	var sumSq float64
	for _, v := range vector {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(1 / math.Sqrt(sumSq))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}

// Dimension returns the configured dimension.
func (p *HashProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op.
func (p *HashProvider) Close() error {
	return nil
}

// Ensure HashProvider implements Provider interface.
var _ Provider = (*HashProvider)(nil)
