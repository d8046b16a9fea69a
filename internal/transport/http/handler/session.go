package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemchat/internal/app"
	"gemchat/internal/transport/http/response"
)

// SessionHandler exposes session CRUD and message listing.
type SessionHandler struct {
	chatService *app.ChatService
}

func NewSessionHandler(chatService *app.ChatService) *SessionHandler {
	return &SessionHandler{chatService: chatService}
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.chatService.ListSessions(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list sessions failed")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "create session failed")
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.chatService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "Session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "get session failed")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	err := h.chatService.DeleteSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "Session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "delete session failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Messages(c *gin.Context) {
	messages, err := h.chatService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list messages failed")
		return
	}
	c.JSON(http.StatusOK, messages)
}
