package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/config"
	apperrors "github.com/yanqian/ai-supportdesk/pkg/errors"
)

func TestRouter_SendMessageSuccess(t *testing.T) {
	chatSvc := &stubChat{
		sendFn: func(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error) {
			require.Equal(t, "Where is my order?", req.Message)
			require.Equal(t, "session-1", req.SessionID)
			return chat.SendResponse{Reply: "It ships tomorrow.", SessionID: "session-1"}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat/message", `{"message":"Where is my order?","sessionId":"session-1"}`, newRouterUnderTest(t, chatSvc, &stubFAQ{}))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got chat.SendResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, chat.SendResponse{Reply: "It ships tomorrow.", SessionID: "session-1"}, got)
}

func TestRouter_SendMessageMissingMessage(t *testing.T) {
	chatSvc := &stubChat{}

	recorder := performRequest(http.MethodPost, "/api/v1/chat/message", `{"sessionId":"abc"}`, newRouterUnderTest(t, chatSvc, &stubFAQ{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Zero(t, chatSvc.sendCalls)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_SendMessageInvalidInput(t *testing.T) {
	chatSvc := &stubChat{
		sendFn: func(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error) {
			return chat.SendResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message is too long", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat/message", `{"message":"x"}`, newRouterUnderTest(t, chatSvc, &stubFAQ{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "message is too long")
}

func TestRouter_SendMessageStorageError(t *testing.T) {
	chatSvc := &stubChat{
		sendFn: func(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error) {
			return chat.SendResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save messages", errors.New("conn refused"))
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/chat/message", `{"message":"hello there"}`, newRouterUnderTest(t, chatSvc, &stubFAQ{}))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "storage_error", errBody["error"]["code"])
	require.NotContains(t, errBody["error"]["message"], "conn refused")
}

func TestRouter_History(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	chatSvc := &stubChat{
		historyFn: func(ctx context.Context, sessionID string) (chat.HistoryResponse, error) {
			require.Equal(t, "session-9", sessionID)
			return chat.HistoryResponse{Messages: []chat.Message{
				{ID: "m1", Sender: chat.SenderUser, Content: "hi", CreatedAt: created},
				{ID: "m2", Sender: chat.SenderAI, Content: "hello", CreatedAt: created},
			}}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/chat/history/session-9", "", newRouterUnderTest(t, chatSvc, &stubFAQ{}))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got struct {
		Messages []struct {
			ID      string `json:"id"`
			Sender  string `json:"sender"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.Messages, 2)
	require.Equal(t, "user", got.Messages[0].Sender)
	require.Equal(t, "ai", got.Messages[1].Sender)
}

func TestRouter_Suggestions(t *testing.T) {
	chatSvc := &stubChat{
		suggestionsFn: func(ctx context.Context) (chat.SuggestionsResponse, error) {
			return chat.SuggestionsResponse{Suggestions: []string{"Track my order", "Return policy"}}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/chat/suggestions", "", newRouterUnderTest(t, chatSvc, &stubFAQ{}))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got chat.SuggestionsResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, []string{"Track my order", "Return policy"}, got.Suggestions)
}

func TestRouter_SearchFAQ(t *testing.T) {
	faqSvc := &stubFAQ{
		searchFn: func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
			require.Equal(t, "refund", req.Query)
			require.Equal(t, 2, req.TopK)
			return faq.SearchResponse{
				Query:   "refund",
				Results: []faq.SearchResult{{ID: "1", Category: "Returns", Question: "Refunds?", Answer: "5-7 days.", Score: 0.91}},
				Context: "1. Refunds? → 5-7 days.",
			}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/faq/search?q=refund&k=2", "", newRouterUnderTest(t, &stubChat{}, faqSvc))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got faq.SearchResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.Results, 1)
	require.InDelta(t, 0.91, got.Results[0].Score, 1e-9)
}

func TestRouter_SearchFAQInvalidK(t *testing.T) {
	faqSvc := &stubFAQ{}

	recorder := performRequest(http.MethodGet, "/api/v1/faq/search?q=refund&k=many", "", newRouterUnderTest(t, &stubChat{}, faqSvc))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Zero(t, faqSvc.searchCalls)
}

func TestRouter_SearchFAQEmptyQuery(t *testing.T) {
	faqSvc := &stubFAQ{
		searchFn: func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
			return faq.SearchResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "query cannot be empty", nil)
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/faq/search", "", newRouterUnderTest(t, &stubChat{}, faqSvc))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_Health(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/health", "", newRouterUnderTest(t, &stubChat{}, &stubFAQ{}))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "healthy", got["status"])
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newRouterUnderTest(t, &stubChat{}, &stubFAQ{}, func(cfg *config.Config) {
		cfg.HTTP.AllowedOrigins = []string{"https://shop.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat/message", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, &stubChat{}, &stubFAQ{}, func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	})

	first := performRequest(http.MethodGet, "/health", "", server)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(http.MethodGet, "/health", "", server)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	errBody := decodeErrorBody(t, second.Body.Bytes())
	require.Equal(t, "rate_limit_exceeded", errBody["error"]["code"])
}

func TestRouter_RetriesTransientFailures(t *testing.T) {
	faqSvc := &stubFAQ{
		searchFn: func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
			return faq.SearchResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load faq entries", errors.New("conn reset"))
		},
	}
	server := newRouterUnderTest(t, &stubChat{}, faqSvc, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3}
	})

	recorder := performRequest(http.MethodGet, "/api/v1/faq/search?q=refund", "", server)
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, 3, faqSvc.searchCalls)
	require.Equal(t, "storage_error", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_RetryRecoversAfterTransientFailure(t *testing.T) {
	faqSvc := &stubFAQ{}
	faqSvc.searchFn = func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
		if faqSvc.searchCalls == 1 {
			return faq.SearchResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load faq entries", errors.New("conn reset"))
		}
		return faq.SearchResponse{Query: req.Query, Results: []faq.SearchResult{}}, nil
	}
	server := newRouterUnderTest(t, &stubChat{}, faqSvc, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3}
	})

	recorder := performRequest(http.MethodGet, "/api/v1/faq/search?q=refund", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, faqSvc.searchCalls)
}

func TestRouter_RetriedRequestCostsOneRateLimitToken(t *testing.T) {
	faqSvc := &stubFAQ{}
	faqSvc.searchFn = func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
		if faqSvc.searchCalls == 1 {
			return faq.SearchResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load faq entries", errors.New("conn reset"))
		}
		return faq.SearchResponse{Query: req.Query, Results: []faq.SearchResult{}}, nil
	}
	server := newRouterUnderTest(t, &stubChat{}, faqSvc, func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3}
	})

	retried := performRequest(http.MethodGet, "/api/v1/faq/search?q=refund", "", server)
	require.Equal(t, http.StatusOK, retried.Code)
	require.Equal(t, 2, faqSvc.searchCalls)

	second := performRequest(http.MethodGet, "/health", "", server)
	require.Equal(t, http.StatusOK, second.Code)

	third := performRequest(http.MethodGet, "/health", "", server)
	require.Equal(t, http.StatusTooManyRequests, third.Code)
}

func TestRouter_RetryIgnoresInternalErrors(t *testing.T) {
	chatSvc := &stubChat{
		sendFn: func(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error) {
			return chat.SendResponse{}, errors.New("boom")
		},
	}
	server := newRouterUnderTest(t, chatSvc, &stubFAQ{}, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3}
	})

	recorder := performRequest(http.MethodPost, "/api/v1/chat/message", `{"message":"hello"}`, server)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, chatSvc.sendCalls)
}

func TestRouter_RetrySkipsExcludedPaths(t *testing.T) {
	chatSvc := &stubChat{
		sendFn: func(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error) {
			return chat.SendResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save messages", errors.New("conn reset"))
		},
	}
	server := newRouterUnderTest(t, chatSvc, &stubFAQ{}, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, Exclude: []string{"/api/v1/chat/message"}}
	})

	recorder := performRequest(http.MethodPost, "/api/v1/chat/message", `{"message":"hello"}`, server)
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, 1, chatSvc.sendCalls)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, chatSvc chat.Service, faqSvc faq.Service, opts ...func(*config.Config)) *http.Server {
	t.Helper()
	handler := NewHandler(chatSvc, faqSvc, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubChat struct {
	sendFn        func(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error)
	historyFn     func(ctx context.Context, sessionID string) (chat.HistoryResponse, error)
	suggestionsFn func(ctx context.Context) (chat.SuggestionsResponse, error)
	sendCalls     int
}

func (s *stubChat) Send(ctx context.Context, req chat.SendRequest) (chat.SendResponse, error) {
	s.sendCalls++
	if s.sendFn != nil {
		return s.sendFn(ctx, req)
	}
	return chat.SendResponse{}, nil
}

func (s *stubChat) History(ctx context.Context, sessionID string) (chat.HistoryResponse, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, sessionID)
	}
	return chat.HistoryResponse{}, nil
}

func (s *stubChat) Suggestions(ctx context.Context) (chat.SuggestionsResponse, error) {
	if s.suggestionsFn != nil {
		return s.suggestionsFn(ctx)
	}
	return chat.SuggestionsResponse{}, nil
}

type stubFAQ struct {
	searchFn    func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error)
	searchCalls int
}

func (s *stubFAQ) Retrieve(context.Context, string, int) ([]faq.RankedResult, error) {
	return nil, nil
}

func (s *stubFAQ) RetrieveAndFormat(context.Context, string, int) (string, error) {
	return "", nil
}

func (s *stubFAQ) Search(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
	s.searchCalls++
	if s.searchFn != nil {
		return s.searchFn(ctx, req)
	}
	return faq.SearchResponse{}, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestResolveOrigin(t *testing.T) {
	allowed := []string{"https://shop.example.com/", "http://localhost:5173"}
	require.Equal(t, "https://shop.example.com", resolveOrigin("https://shop.example.com", allowed))
	require.Equal(t, "http://LOCALHOST:5173", resolveOrigin("http://LOCALHOST:5173", allowed))
	require.Equal(t, "https://shop.example.com/", resolveOrigin("https://evil.example.com", allowed))
	require.Equal(t, "*", resolveOrigin("https://any.example.com", nil))
	require.Equal(t, "*", resolveOrigin("https://any.example.com", []string{"*"}))
}
