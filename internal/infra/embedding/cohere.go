package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

const (
	defaultCohereURL   = "https://api.cohere.ai/v1/embed"
	defaultCohereModel = "embed-english-v3.0"
)

// CohereProvider calls the Cohere embed API.
type CohereProvider struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

// NewCohereProvider constructs the provider. baseURL may be empty.
func NewCohereProvider(apiKey, model, baseURL string, timeout time.Duration) (*CohereProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("cohere api key cannot be empty")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultCohereModel
	}
	url := defaultCohereURL
	if strings.TrimSpace(baseURL) != "" {
		url = strings.TrimRight(baseURL, "/") + "/v1/embed"
	}
	return &CohereProvider{apiKey: apiKey, model: model, url: url, client: newHTTPClient(timeout)}, nil
}

func (p *CohereProvider) Name() string { return "cohere" }

// Embed maps the role onto Cohere's search_query / search_document input types.
func (p *CohereProvider) Embed(ctx context.Context, text string, role faq.EmbeddingRole) ([]float32, error) {
	payload := map[string]any{
		"texts":      []string{text},
		"model":      p.model,
		"input_type": cohereInputType(role),
	}
	body, err := postJSON(ctx, p.client, p.Name(), p.url, p.apiKey, payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode cohere response: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, errors.New("cohere response has no embeddings")
	}
	return resp.Embeddings[0], nil
}

func cohereInputType(role faq.EmbeddingRole) string {
	if role == faq.RoleDocument {
		return "search_document"
	}
	return "search_query"
}

var _ faq.EmbeddingProvider = (*CohereProvider)(nil)
