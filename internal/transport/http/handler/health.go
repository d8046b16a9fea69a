package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gemchat/internal/ai"
	"gemchat/internal/app"
)

type HealthHandler struct {
	chatService *app.ChatService
}

func NewHealthHandler(chatService *app.ChatService) *HealthHandler {
	return &HealthHandler{chatService: chatService}
}

// Check reports process health and the advisory provider availability used
// by the client's status indicator.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ai.ProbeTimeout)
	defer cancel()

	aiService := "unavailable"
	if h.chatService.Available(ctx) {
		aiService = "available"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"aiService": aiService,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
