package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gemchat/internal/ai"
	"gemchat/internal/app"
	"gemchat/internal/config"
	"gemchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
	defaults    config.ChatConfig
}

func NewChatHandler(chatService *app.ChatService, defaults config.ChatConfig) *ChatHandler {
	return &ChatHandler{chatService: chatService, defaults: defaults}
}

type sendMessageRequest struct {
	Content     string  `json:"content" binding:"required"`
	Role        string  `json:"role"`
	Model       string  `json:"model"`
	Provider    string  `json:"provider"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type completionRequest struct {
	Message     string    `json:"message" binding:"required"`
	History     []ai.Turn `json:"history"`
	Model       string    `json:"model"`
	Provider    string    `json:"provider"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
}

type generateTitleRequest struct {
	FirstMessage string `json:"firstMessage" binding:"required"`
}

// SendMessage appends a user message and the generated (or apologetic)
// assistant reply to a session. Generation failure is not a request
// failure: the response then carries success status plus an error field.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		response.Error(c, http.StatusBadRequest, "message content is required")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		SessionID:   c.Param("id"),
		Content:     req.Content,
		Role:        req.Role,
		Model:       req.Model,
		Provider:    req.Provider,
		Temperature: h.temperature(req.Temperature),
		MaxTokens:   h.maxTokens(req.MaxTokens),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty), errors.Is(err, app.ErrInvalidRole):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "Session not found")
		default:
			response.Error(c, http.StatusInternalServerError, "send message failed")
		}
		return
	}

	if result.GenerationErr != "" {
		c.JSON(http.StatusOK, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Complete serves stateless completions; provider failures surface directly
// since there is no conversation to degrade into.
func (h *ChatHandler) Complete(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := h.chatService.Complete(c.Request.Context(), app.CompletionInput{
		Message:     req.Message,
		History:     req.History,
		Model:       req.Model,
		Provider:    req.Provider,
		Temperature: h.temperature(req.Temperature),
		MaxTokens:   h.maxTokens(req.MaxTokens),
	})
	if err != nil {
		if errors.Is(err, app.ErrMessageEmpty) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		response.AIError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) GenerateTitle(c *gin.Context) {
	var req generateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "First message is required")
		return
	}

	title, err := h.chatService.GenerateTitle(c.Request.Context(), c.Param("id"), req.FirstMessage)
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "Session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "generate title failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": title})
}

func (h *ChatHandler) temperature(requested float64) float64 {
	if requested <= 0 {
		return h.defaults.Temperature
	}
	return requested
}

func (h *ChatHandler) maxTokens(requested int) int {
	if requested <= 0 {
		return h.defaults.MaxTokens
	}
	return requested
}
