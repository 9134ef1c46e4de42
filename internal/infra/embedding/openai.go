package embedding

import (
	"context"
	"errors"
	"strings"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm/chatgpt"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIProvider embeds text through an OpenAI-compatible embeddings endpoint.
type OpenAIProvider struct {
	client     *chatgpt.Client
	model      string
	dimensions int
}

// NewOpenAIProvider constructs the provider.
func NewOpenAIProvider(client *chatgpt.Client, model string, dimensions int) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{client: client, model: model, dimensions: dimensions}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Embed ignores the role; OpenAI embeddings are symmetric.
func (p *OpenAIProvider) Embed(ctx context.Context, text string, _ faq.EmbeddingRole) ([]float32, error) {
	resp, err := p.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{
		Model:      p.model,
		Input:      []string{text},
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai response has no embeddings")
	}
	return resp.Data[0].Embedding, nil
}

var _ faq.EmbeddingProvider = (*OpenAIProvider)(nil)
