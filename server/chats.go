package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/foundry-9/quilltap/chat"
	"github.com/foundry-9/quilltap/llm"
)

type sendMessageRequest struct {
	Content     string `json:"content"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	UserID      string `json:"userId,omitempty"`
	CharacterID string `json:"characterId,omitempty"`
	Participant string `json:"participant,omitempty"`

	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
	MaxTokens     int64    `json:"maxTokens,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	WebSearch     bool     `json:"webSearch,omitempty"`
	MaxToolRounds int      `json:"maxToolRounds,omitempty"`
}

type storedMessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"toolName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleHistory returns the stored messages for a chat in insertion order.
func (s *Server) handleHistory(c echo.Context) error {
	chatID := c.Param("chatID")

	messages, err := s.store.Messages(c.Request().Context(), chatID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]storedMessageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, storedMessageResponse{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.Content,
			ToolName:  msg.ToolName,
			CreatedAt: msg.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleSendMessage appends a user message to the chat and streams the
// assistant turn back as server-sent events. Errors after streaming has
// begun are reported as an error event on the stream, not as an HTTP
// status.
func (s *Server) handleSendMessage(c echo.Context) error {
	chatID := c.Param("chatID")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.cfg.DefaultProvider
	}
	provider, err := s.resolveProvider(providerName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	userMsg := &chat.StoredMessage{
		ChatID:  chatID,
		Role:    llm.RoleUser,
		Content: req.Content,
	}
	if err := s.store.AddMessage(ctx, userMsg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	stored, err := s.store.Messages(ctx, chatID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	history := chat.Canonicalize(stored)

	opts := &chat.TurnOptions{
		ChatID:                 chatID,
		UserID:                 req.UserID,
		CharacterID:            req.CharacterID,
		Participant:            req.Participant,
		Model:                  req.Model,
		Temperature:            req.Temperature,
		TopP:                   req.TopP,
		MaxTokens:              req.MaxTokens,
		Stop:                   req.Stop,
		WebSearchAllowed:       req.WebSearch,
		ImageProfileConfigured: s.tools != nil && s.tools.Has("generate_image"),
		MaxToolRounds:          req.MaxToolRounds,
	}

	chat.PrepareSSE(c.Response().Header())
	c.Response().WriteHeader(http.StatusOK)
	transport := chat.NewSSETransport(c.Response())

	runner := chat.NewTurnRunner(provider, s.tools, s.store, s.logger)
	if err := runner.Run(ctx, opts, history, transport); err != nil {
		// The error event has already been sent on the stream.
		s.logger.Error().Err(err).Str("chatId", chatID).Msg("turn failed")
	}
	return nil
}
