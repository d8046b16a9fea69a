package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"gemchat/internal/ai"
	"gemchat/internal/app"
	"gemchat/internal/config"
	"gemchat/internal/model"
	"gemchat/internal/store"
)

type scriptedProvider struct {
	name  string
	reply string
	err   error
	up    bool
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) GenerateCompletion(_ context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &ai.CompletionResponse{
		Content:  p.reply,
		Model:    req.Model,
		Provider: p.name,
		Usage:    ai.Usage{TotalTokens: 5},
	}, nil
}

func (p *scriptedProvider) CheckAvailability(context.Context) bool { return p.up }

func newTestRouter(primary, secondary ai.Provider) (*gin.Engine, *store.MemoryStore) {
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	chatService := app.NewChatService(st, ai.NewRouter(primary, secondary), nil)
	defaults := config.ChatConfig{Temperature: 0.7, MaxTokens: 1024}

	healthHandler := NewHealthHandler(chatService)
	sessionHandler := NewSessionHandler(chatService)
	chatHandler := NewChatHandler(chatService, defaults)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/health", healthHandler.Check)
	api.GET("/sessions", sessionHandler.List)
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions/:id", sessionHandler.Get)
	api.DELETE("/sessions/:id", sessionHandler.Delete)
	api.GET("/sessions/:id/messages", sessionHandler.Messages)
	api.POST("/sessions/:id/messages", chatHandler.SendMessage)
	api.POST("/sessions/:id/generate-title", chatHandler.GenerateTitle)
	api.POST("/chat/completions", chatHandler.Complete)

	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(&scriptedProvider{name: ai.ProviderGemini}, &scriptedProvider{name: ai.ProviderHuggingFace})

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"title": "my chat"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", w.Code)
	}
	var session model.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Title != "my chat" || session.ID == "" {
		t.Errorf("unexpected session %+v", session)
	}

	w = doJSON(t, router, http.MethodGet, "/api/sessions/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get session status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/sessions", nil)
	var listed []model.Session
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed) != 1 {
		t.Errorf("expected 1 session listed, got %d", len(listed))
	}

	w = doJSON(t, router, http.MethodDelete, "/api/sessions/"+session.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/api/sessions/"+session.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	router, _ := newTestRouter(&scriptedProvider{name: ai.ProviderGemini}, &scriptedProvider{name: ai.ProviderHuggingFace})

	w := doJSON(t, router, http.MethodGet, "/api/sessions/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["message"] != "Session not found" {
		t.Errorf("message = %q", body["message"])
	}
}

func TestSendMessageSuccessResponse(t *testing.T) {
	router, st := newTestRouter(
		&scriptedProvider{name: ai.ProviderGemini, reply: "Hello from AI"},
		&scriptedProvider{name: ai.ProviderHuggingFace},
	)

	session, _ := st.CreateSession(context.Background(), store.CreateSessionInput{})
	w := doJSON(t, router, http.MethodPost, "/api/sessions/"+session.ID+"/messages", gin.H{
		"content": "hello",
		"role":    "user",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var result struct {
		UserMessage model.Message `json:"userMessage"`
		AIMessage   model.Message `json:"aiMessage"`
		Usage       *ai.Usage     `json:"usage"`
		Error       string        `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.UserMessage.Role != model.RoleUser || result.AIMessage.Content != "Hello from AI" {
		t.Errorf("unexpected exchange: %+v", result)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 5 {
		t.Errorf("usage missing: %+v", result.Usage)
	}
	if result.Error != "" {
		t.Errorf("unexpected error field %q", result.Error)
	}
}

func TestSendMessageGenerationFailureStillSucceeds(t *testing.T) {
	router, st := newTestRouter(
		&scriptedProvider{name: ai.ProviderGemini, err: errors.New("upstream down")},
		&scriptedProvider{name: ai.ProviderHuggingFace},
	)

	session, _ := st.CreateSession(context.Background(), store.CreateSessionInput{})
	w := doJSON(t, router, http.MethodPost, "/api/sessions/"+session.ID+"/messages", gin.H{
		"content": "hello",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on degraded generation: %s", w.Code, w.Body.String())
	}

	var result struct {
		AIMessage model.Message `json:"aiMessage"`
		Error     string        `json:"error"`
	}
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.Error != "upstream down" {
		t.Errorf("error field = %q", result.Error)
	}
	if result.AIMessage.Metadata == nil || result.AIMessage.Metadata.Error == "" {
		t.Errorf("metadata.error not set: %+v", result.AIMessage.Metadata)
	}
}

func TestSendMessageValidation(t *testing.T) {
	router, st := newTestRouter(&scriptedProvider{name: ai.ProviderGemini}, &scriptedProvider{name: ai.ProviderHuggingFace})
	session, _ := st.CreateSession(context.Background(), store.CreateSessionInput{})

	w := doJSON(t, router, http.MethodPost, "/api/sessions/"+session.ID+"/messages", gin.H{"content": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank content status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/sessions/"+session.ID+"/messages", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/sessions/unknown/messages", gin.H{"content": "hi"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", w.Code)
	}
}

func TestGenerateTitleEndpoint(t *testing.T) {
	router, st := newTestRouter(
		&scriptedProvider{name: ai.ProviderGemini, reply: "Short Title"},
		&scriptedProvider{name: ai.ProviderHuggingFace},
	)

	session, _ := st.CreateSession(context.Background(), store.CreateSessionInput{})
	w := doJSON(t, router, http.MethodPost, "/api/sessions/"+session.ID+"/generate-title", gin.H{
		"firstMessage": "how do rockets work?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["title"] != "Short Title" {
		t.Errorf("title = %q", body["title"])
	}

	w = doJSON(t, router, http.MethodPost, "/api/sessions/unknown/generate-title", gin.H{"firstMessage": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/sessions/"+session.ID+"/generate-title", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing firstMessage status = %d, want 400", w.Code)
	}
}

func TestCompletionsEndpoint(t *testing.T) {
	router, _ := newTestRouter(
		&scriptedProvider{name: ai.ProviderGemini, reply: "stateless answer"},
		&scriptedProvider{name: ai.ProviderHuggingFace},
	)

	w := doJSON(t, router, http.MethodPost, "/api/chat/completions", gin.H{"message": "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp ai.CompletionResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Content != "stateless answer" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestCompletionsEndpointAIError(t *testing.T) {
	router, _ := newTestRouter(
		&scriptedProvider{name: ai.ProviderGemini, err: errors.New("boom")},
		&scriptedProvider{name: ai.ProviderHuggingFace},
	)

	w := doJSON(t, router, http.MethodPost, "/api/chat/completions", gin.H{"message": "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["type"] != "ai_error" {
		t.Errorf("type = %q, want ai_error", body["type"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(
		&scriptedProvider{name: ai.ProviderGemini, up: false},
		&scriptedProvider{name: ai.ProviderHuggingFace, up: true},
	)

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "ok" || body["aiService"] != "available" {
		t.Errorf("body = %v", body)
	}
	if body["timestamp"] == "" {
		t.Error("timestamp missing")
	}
}

func TestMessagesEndpointOrdering(t *testing.T) {
	router, st := newTestRouter(&scriptedProvider{name: ai.ProviderGemini}, &scriptedProvider{name: ai.ProviderHuggingFace})
	ctx := context.Background()

	session, _ := st.CreateSession(ctx, store.CreateSessionInput{})
	st.CreateMessage(ctx, store.CreateMessageInput{SessionID: session.ID, Role: model.RoleUser, Content: "first"})
	st.CreateMessage(ctx, store.CreateMessageInput{SessionID: session.ID, Role: model.RoleAssistant, Content: "second"})

	w := doJSON(t, router, http.MethodGet, "/api/sessions/"+session.ID+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var messages []model.Message
	json.Unmarshal(w.Body.Bytes(), &messages)
	if len(messages) != 2 || messages[0].Content != "first" || messages[1].Content != "second" {
		t.Errorf("unexpected messages %+v", messages)
	}
}
