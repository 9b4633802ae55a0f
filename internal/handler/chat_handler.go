package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/assistant/internal/assistant"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/middleware"
	"github.com/eaglebank/assistant/internal/models"
)

// ChatAssistant runs a conversational turn.
type ChatAssistant interface {
	HandleTurn(ctx context.Context, userID, sessionID, text string) (*assistant.TurnResult, error)
}

// TranscriptQuerier reads back a stored session.
type TranscriptQuerier interface {
	GetTranscript(ctx context.Context, q cqrs.GetTranscriptQuery) ([]models.ConversationTurn, error)
}

type ChatHandler struct {
	assistant ChatAssistant
	queries   TranscriptQuerier
}

type ChatRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"required,max=2000"`
}

type TranscriptResponse struct {
	SessionID string                    `json:"sessionId"`
	Turns     []models.ConversationTurn `json:"turns"`
}

func NewChatHandler(chat ChatAssistant, queries TranscriptQuerier) *ChatHandler {
	return &ChatHandler{assistant: chat, queries: queries}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	result, err := h.assistant.HandleTurn(c.Request.Context(), userID, req.SessionID, req.Message)
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to process message")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	sessionID := c.Param("sessionId")

	turns, err := h.queries.GetTranscript(c.Request.Context(), cqrs.GetTranscriptQuery{
		SessionID: sessionID,
		UserID:    userID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to load session")
		return
	}

	c.JSON(http.StatusOK, TranscriptResponse{SessionID: sessionID, Turns: turns})
}
