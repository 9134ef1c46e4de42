package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	chatSvc chat.Service
	faqSvc  faq.Service
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc chat.Service, faqSvc faq.Service, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		faqSvc:  faqSvc,
		logger:  logger.With("component", "http.handler"),
	}
}

// SendMessage answers one customer message and returns the session to continue with.
func (h *Handler) SendMessage(c *gin.Context) {
	var req chat.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.chatSvc.Send(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "chat_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History lists the messages of a session.
func (h *Handler) History(c *gin.Context) {
	resp, err := h.chatSvc.History(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		abortWithError(c, fromAppError(err, "history_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Suggestions returns prompts built from trending questions.
func (h *Handler) Suggestions(c *gin.Context) {
	resp, err := h.chatSvc.Suggestions(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err, "suggestions_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchFAQ ranks the FAQ corpus against ?q= and returns the top ?k= entries with scores.
func (h *Handler) SearchFAQ(c *gin.Context) {
	var req faq.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.faqSvc.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "faq_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Service is running"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
