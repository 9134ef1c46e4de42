package tokenizer

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/ai-supportdesk/pkg/util"
)

const defaultEncoding = "cl100k_base"

// Counter counts prompt tokens with a tiktoken encoding, or estimates them when
// no encoding could be loaded.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter resolves the encoding for model, falling back to cl100k_base and then to estimation.
func NewCounter(model string, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tokenizer")
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &Counter{enc: enc}
		}
	}
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating tokens", "model", model, "error", err)
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// Count implements chat.TokenCounter.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		return util.EstimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
