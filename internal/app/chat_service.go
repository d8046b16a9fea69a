package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"gemchat/internal/ai"
	"gemchat/internal/model"
	"gemchat/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrInvalidRole     = errors.New("role must be user or assistant")
)

const (
	// historyWindow caps how many prior messages feed the prompt. The
	// exact value is part of the wire-compatible behavior.
	historyWindow = 10

	fallbackTitle  = "New Conversation"
	titlePromptFmt = `Generate a short, descriptive title (maximum 6 words) for a conversation that starts with: "%s". Only return the title, nothing else.`
)

// MessageArchiver receives every persisted message for out-of-process
// consumers. Best effort: failures are logged, never surfaced.
type MessageArchiver interface {
	Archive(ctx context.Context, msg model.Message) error
}

// ChatService is the completion orchestrator: it assembles conversation
// context, invokes the routed capability, and persists both sides of the
// exchange. Generation failures degrade into conversation content;
// persistence failures propagate.
type ChatService struct {
	store    store.Store
	router   *ai.Router
	archiver MessageArchiver

	// sessionLocks serializes the read-modify-write in SendMessage per
	// session so concurrent appends cannot interleave history reads.
	sessionLocks sync.Map
}

func NewChatService(st store.Store, router *ai.Router, archiver MessageArchiver) *ChatService {
	return &ChatService{
		store:    st,
		router:   router,
		archiver: archiver,
	}
}

type SendMessageInput struct {
	SessionID   string
	Content     string
	Role        string
	Model       string
	Provider    string
	Temperature float64
	MaxTokens   int
}

type SendMessageResult struct {
	UserMessage *model.Message `json:"userMessage"`
	AIMessage   *model.Message `json:"aiMessage"`
	Usage       *ai.Usage      `json:"usage,omitempty"`
	// GenerationErr is set when the capability failed and the AIMessage
	// carries the apology text. The request itself still succeeded.
	GenerationErr string `json:"error,omitempty"`
}

func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	role := input.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	session, err := s.store.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	lock := s.lockFor(input.SessionID)
	lock.Lock()
	defer lock.Unlock()

	// The user message is persisted unconditionally before generation is
	// attempted; a failure here is a request failure.
	userMessage, err := s.store.CreateMessage(ctx, store.CreateMessageInput{
		SessionID: input.SessionID,
		Role:      role,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("persist user message failed: %w", err)
	}
	s.archive(ctx, *userMessage)

	history, err := s.promptHistory(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	modelID := input.Model
	if modelID == "" {
		modelID = ai.DefaultModel
	}
	provider := s.router.Route(modelID, input.Provider)

	resp, genErr := provider.GenerateCompletion(ctx, ai.CompletionRequest{
		Message:     content,
		History:     history,
		Model:       modelID,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxTokens,
	})

	// A superseded or aborted request discards its result instead of
	// committing a reply nobody is waiting for.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if genErr != nil {
		aiMessage, err := s.store.CreateMessage(ctx, store.CreateMessageInput{
			SessionID: input.SessionID,
			Role:      model.RoleAssistant,
			Content:   fmt.Sprintf("I'm sorry, I encountered an error: %s", genErr.Error()),
			Metadata:  &model.MessageMetadata{Error: genErr.Error()},
		})
		if err != nil {
			return nil, fmt.Errorf("persist error message failed: %w", err)
		}
		s.archive(ctx, *aiMessage)
		return &SendMessageResult{
			UserMessage:   userMessage,
			AIMessage:     aiMessage,
			GenerationErr: genErr.Error(),
		}, nil
	}

	aiMessage, err := s.store.CreateMessage(ctx, store.CreateMessageInput{
		SessionID: input.SessionID,
		Role:      model.RoleAssistant,
		Content:   resp.Content,
		Metadata: &model.MessageMetadata{
			Model:  resp.Model,
			Tokens: resp.Usage.TotalTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("persist assistant message failed: %w", err)
	}
	s.archive(ctx, *aiMessage)

	if _, err := s.store.UpdateSession(ctx, input.SessionID, store.SessionUpdate{}); err != nil {
		return nil, fmt.Errorf("touch session failed: %w", err)
	}

	usage := resp.Usage
	return &SendMessageResult{
		UserMessage: userMessage,
		AIMessage:   aiMessage,
		Usage:       &usage,
	}, nil
}

// promptHistory returns the most recent window of prior messages in
// oldest-first order, excluding the just-persisted user message.
func (s *ChatService) promptHistory(ctx context.Context, sessionID string) ([]ai.Turn, error) {
	messages, err := s.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}
	if len(messages) > 0 {
		messages = messages[:len(messages)-1]
	}

	history := make([]ai.Turn, 0, len(messages))
	for _, msg := range messages {
		history = append(history, ai.Turn{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

type CompletionInput struct {
	Message     string
	History     []ai.Turn
	Model       string
	Provider    string
	Temperature float64
	MaxTokens   int
}

// Complete runs a stateless completion: nothing is persisted and provider
// errors propagate to the caller.
func (s *ChatService) Complete(ctx context.Context, input CompletionInput) (*ai.CompletionResponse, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, ErrMessageEmpty
	}

	modelID := input.Model
	if modelID == "" {
		modelID = ai.DefaultModel
	}
	provider := s.router.Route(modelID, input.Provider)
	return provider.GenerateCompletion(ctx, ai.CompletionRequest{
		Message:     input.Message,
		History:     input.History,
		Model:       modelID,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxTokens,
	})
}

// GenerateTitle asks the primary capability for a short descriptive title
// and applies it to the session. Best effort: any generation failure,
// missing credentials included, falls back to a fixed placeholder.
func (s *ChatService) GenerateTitle(ctx context.Context, sessionID, firstMessage string) (string, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}

	title := fallbackTitle
	resp, genErr := s.router.Primary().GenerateCompletion(ctx, ai.CompletionRequest{
		Message:     fmt.Sprintf(titlePromptFmt, firstMessage),
		Temperature: 0.3,
		MaxTokens:   20,
	})
	if genErr == nil {
		if generated := strings.TrimSpace(resp.Content); generated != "" {
			title = generated
		}
	}

	if _, err := s.store.UpdateSession(ctx, sessionID, store.SessionUpdate{Title: &title}); err != nil {
		return "", fmt.Errorf("apply session title failed: %w", err)
	}
	return title, nil
}

func (s *ChatService) CreateSession(ctx context.Context, title string) (*model.Session, error) {
	return s.store.CreateSession(ctx, store.CreateSessionInput{Title: strings.TrimSpace(title)})
}

func (s *ChatService) GetSession(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context) ([]model.Session, error) {
	return s.store.ListSessions(ctx)
}

func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteSession(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	return s.store.Messages(ctx, sessionID)
}

// Available reports whether at least one capability answers a probe.
func (s *ChatService) Available(ctx context.Context) bool {
	return s.router.CheckAvailability(ctx)
}

func (s *ChatService) lockFor(sessionID string) *sync.Mutex {
	lock, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *ChatService) archive(ctx context.Context, msg model.Message) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, msg); err != nil {
		log.Printf("archive message %s failed: %v", msg.ID, err)
	}
}
