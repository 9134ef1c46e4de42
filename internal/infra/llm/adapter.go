package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-supportdesk/pkg/metrics"
)

// ChatGPTLLM adapts the ChatGPT client to the chat domain.
type ChatGPTLLM struct {
	client      *chatgpt.Client
	model       string
	temperature float32
	maxTokens   int
	usage       metrics.Meter
	logger      *slog.Logger
}

// NewChatGPTLLM constructs the adapter.
func NewChatGPTLLM(client *chatgpt.Client, model string, temperature float32, maxTokens int, logger *slog.Logger) *ChatGPTLLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatGPTLLM{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.With("component", "llm.chatgpt"),
	}
}

// Chat sends a chat completion request.
func (l *ChatGPTLLM) Chat(ctx context.Context, messages []chat.LLMMessage) (string, error) {
	req := chatgpt.ChatCompletionRequest{
		Model:       l.model,
		Temperature: l.temperature,
		MaxTokens:   l.maxTokens,
		Messages:    make([]chatgpt.Message, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, chatgpt.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if usage := resp.Usage.TokenUsage(); !usage.IsZero() {
		total := l.usage.Record(usage)
		l.logger.Info("chat completion usage", "model", l.model, "usage", usage, "cumulative", total)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Usage returns the tokens consumed so far and the number of completions that reported usage.
func (l *ChatGPTLLM) Usage() (metrics.TokenUsage, int) {
	return l.usage.Snapshot()
}

var _ chat.LLM = (*ChatGPTLLM)(nil)

// EchoLLM answers without external calls, for local development without an API key.
type EchoLLM struct{}

// Chat returns a canned reply that repeats the question.
func (EchoLLM) Chat(_ context.Context, messages []chat.LLMMessage) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	return "Thanks for your question: " + messages[len(messages)-1].Content + ". A support agent will follow up shortly.", nil
}

var _ chat.LLM = EchoLLM{}
