package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

const (
	defaultHuggingFaceURL   = "https://api-inference.huggingface.co"
	defaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"
)

// HuggingFaceProvider calls the feature-extraction inference API.
type HuggingFaceProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHuggingFaceProvider constructs the provider. baseURL may be empty.
func NewHuggingFaceProvider(apiKey, model, baseURL string, timeout time.Duration, logger *slog.Logger) (*HuggingFaceProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("huggingface api key cannot be empty")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultHuggingFaceModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultHuggingFaceURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
		logger:  logger.With("component", "embedding.huggingface"),
	}, nil
}

func (p *HuggingFaceProvider) Name() string { return "huggingface" }

// Embed tries the pipeline endpoint first and the models endpoint when the former is gone.
// The role is ignored; sentence-transformers models embed queries and documents alike.
func (p *HuggingFaceProvider) Embed(ctx context.Context, text string, _ faq.EmbeddingRole) ([]float32, error) {
	endpoints := []string{
		p.baseURL + "/pipeline/feature-extraction/" + p.model,
		p.baseURL + "/models/" + p.model,
	}
	var lastErr error
	for _, endpoint := range endpoints {
		body, err := postJSON(ctx, p.client, p.Name(), endpoint, p.apiKey, map[string]any{"inputs": text})
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone) {
				p.logger.Debug("huggingface endpoint unavailable, trying next", "endpoint", endpoint, "status", statusErr.StatusCode)
				lastErr = err
				continue
			}
			return nil, err
		}
		return parseFeatureExtraction(body)
	}
	return nil, fmt.Errorf("all huggingface endpoints failed: %w", lastErr)
}

// parseFeatureExtraction accepts a flat vector, a batch of vectors, or an object
// wrapping either under "embeddings" or "output".
func parseFeatureExtraction(body []byte) ([]float32, error) {
	var raw json.RawMessage = body
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err == nil {
		switch {
		case wrapped["embeddings"] != nil:
			raw = wrapped["embeddings"]
		case wrapped["output"] != nil:
			raw = wrapped["output"]
		default:
			return nil, errors.New("unexpected huggingface response object")
		}
	}

	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, errors.New("huggingface response has no embedding")
		}
		return flat, nil
	}
	var batch [][]float32
	if err := json.Unmarshal(raw, &batch); err == nil {
		if len(batch) == 0 || len(batch[0]) == 0 {
			return nil, errors.New("huggingface response has no embedding")
		}
		return batch[0], nil
	}
	return nil, errors.New("unexpected huggingface response format")
}

var _ faq.EmbeddingProvider = (*HuggingFaceProvider)(nil)
