package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

// DeterministicProvider avoids network calls by hashing words into a bag-of-words vector.
// Texts sharing words score higher, which is enough for local development.
type DeterministicProvider struct {
	dim int
}

// NewDeterministicProvider constructs the provider.
func NewDeterministicProvider(dim int) *DeterministicProvider {
	if dim <= 0 {
		dim = 256
	}
	return &DeterministicProvider{dim: dim}
}

func (p *DeterministicProvider) Name() string { return "deterministic" }

// Embed returns an L2-normalised vector; the role does not change it.
func (p *DeterministicProvider) Embed(_ context.Context, text string, _ faq.EmbeddingRole) ([]float32, error) {
	vector := make([]float32, p.dim)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(word))
		seed := hash.Sum64()
		vector[seed%uint64(p.dim)] += 1
		// a second bucket with a sign keeps collisions from dominating
		seed = seed*1099511628211 + 1469598103934665603
		if seed&1 == 0 {
			vector[seed%uint64(p.dim)] += 0.5
		} else {
			vector[seed%uint64(p.dim)] -= 0.5
		}
	}
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector, nil
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

var _ faq.EmbeddingProvider = (*DeterministicProvider)(nil)
