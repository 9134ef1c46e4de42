package chat

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/ai-supportdesk/pkg/errors"
	"github.com/yanqian/ai-supportdesk/pkg/util"
)

// Service runs the support conversation flow.
type Service interface {
	Send(ctx context.Context, req SendRequest) (SendResponse, error)
	History(ctx context.Context, sessionID string) (HistoryResponse, error)
	Suggestions(ctx context.Context) (SuggestionsResponse, error)
}

type service struct {
	cfg       Config
	store     ConversationStore
	retriever Retriever
	llm       LLM
	tracker   QueryTracker
	tokens    TokenCounter
	logger    *slog.Logger
}

// NewService wires the conversation flow. tracker and tokens are optional.
func NewService(cfg Config, store ConversationStore, retriever Retriever, llm LLM, tracker QueryTracker, tokens TokenCounter, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg.withDefaults(),
		store:     store,
		retriever: retriever,
		llm:       llm,
		tracker:   tracker,
		tokens:    tokens,
		logger:    logger.With("component", "chat.service"),
	}
}

// Send answers one user message and persists the exchange.
func (s *service) Send(ctx context.Context, req SendRequest) (SendResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return SendResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message cannot be empty", nil)
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageLength {
		return SendResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message exceeds maximum length", nil)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conversation, err := s.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return SendResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load conversation", err)
	}
	logger := s.logger.With("session_id", sessionID, "conversation_id", conversation.ID)

	history := s.loadHistory(ctx, logger, sessionID)
	greeting := isGreeting(message)
	acknowledgement := isAcknowledgement(message)

	var reply string
	switch {
	case greeting && len(history) == 0:
		reply = greetingReply
		logger.Info("greeting answered without retrieval")
	default:
		faqContext := ""
		if !greeting && !acknowledgement {
			s.trackQuery(ctx, logger, message)
			faqContext = s.faqContext(ctx, logger, message)
		}
		reply = s.generate(ctx, logger, faqContext, history, message)
	}

	if err := s.savePair(ctx, sessionID, message, reply); err != nil {
		return SendResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save messages", err)
	}
	logger.Info("chat message processed", "message", util.Preview(message, 80), "history", len(history), "reply_chars", len(reply))
	return SendResponse{Reply: reply, SessionID: sessionID}, nil
}

// History returns every message of a session, oldest first. Unknown sessions have no messages.
func (s *service) History(ctx context.Context, sessionID string) (HistoryResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return HistoryResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "session id cannot be empty", nil)
	}
	if _, found, err := s.store.Find(ctx, sessionID); err != nil {
		return HistoryResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load conversation", err)
	} else if !found {
		return HistoryResponse{Messages: []Message{}}, nil
	}
	messages, err := s.store.List(ctx, sessionID)
	if err != nil {
		return HistoryResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load messages", err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return HistoryResponse{Messages: messages}, nil
}

func (s *service) loadHistory(ctx context.Context, logger *slog.Logger, sessionID string) []Message {
	history, err := s.store.ListRecent(ctx, sessionID, s.cfg.HistoryTokens, s.cfg.HistoryLimit)
	if err != nil {
		logger.Warn("failed to list recent messages", "error", err)
		return nil
	}
	return history
}

func (s *service) faqContext(ctx context.Context, logger *slog.Logger, message string) string {
	if s.retriever == nil {
		return ""
	}
	faqContext, err := s.retriever.RetrieveAndFormat(ctx, message, s.cfg.FAQTopK)
	if err != nil {
		logger.Warn("faq retrieval failed, answering without faq context", "error", err)
		return ""
	}
	return faqContext
}

func (s *service) generate(ctx context.Context, logger *slog.Logger, faqContext string, history []Message, message string) string {
	prompt := buildPrompt(s.cfg.SystemPrompt, faqContext, history, message)
	reply, err := s.llm.Chat(ctx, prompt)
	if err != nil {
		logger.Error("llm chat failed", "error", err)
		return apologyReply
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		logger.Warn("empty llm reply, using fallback")
		return fallbackReply
	}
	return reply
}

func (s *service) trackQuery(ctx context.Context, logger *slog.Logger, message string) {
	if s.tracker == nil || !strings.Contains(message, "?") {
		return
	}
	if err := s.tracker.IncrementQuery(ctx, normalize(message), message); err != nil {
		logger.Warn("failed to record query", "error", err)
	}
}

func (s *service) savePair(ctx context.Context, sessionID, userContent, replyContent string) error {
	now := util.NowUTC()
	user := Message{SessionID: sessionID, Sender: SenderUser, Content: userContent, TokenCount: s.countTokens(userContent), CreatedAt: now}
	reply := Message{SessionID: sessionID, Sender: SenderAI, Content: replyContent, TokenCount: s.countTokens(replyContent), CreatedAt: now}
	return s.store.AppendPair(ctx, sessionID, user, reply)
}

func (s *service) countTokens(text string) int {
	if s.tokens != nil {
		return s.tokens.Count(text)
	}
	return util.EstimateTokens(text)
}

var _ Service = (*service)(nil)
