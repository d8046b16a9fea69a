package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	huggingFaceDefaultBaseURL = "https://router.huggingface.co/v1"
	huggingFaceDefaultModel   = "Qwen/Qwen2.5-7B-Instruct"
)

var (
	ErrHuggingFaceMissingKey = errors.New("Invalid Hugging Face API key. Get a free key from https://huggingface.co/settings/tokens")
	ErrHuggingFaceEmpty      = errors.New("No response generated from Hugging Face model")
)

type HuggingFaceConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// HuggingFaceClient serves Qwen-family models through Hugging Face's
// OpenAI-compatible inference router. Unlike the Gemini client it sends the
// history as structured turns; ordering and content are identical to the
// flattened transcript.
type HuggingFaceClient struct {
	cfg    HuggingFaceConfig
	client *openai.Client
}

func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = huggingFaceDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = huggingFaceDefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient.Timeout = 90 * time.Second

	return &HuggingFaceClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (c *HuggingFaceClient) Name() string { return ProviderHuggingFace }

func (c *HuggingFaceClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrHuggingFaceMissingKey
	}
	req = req.normalized()
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	history := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		history = append(history, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	history = append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    history,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, huggingFaceError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrHuggingFaceEmpty
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	backfillUsage(&usage, BuildTranscript(req.History, req.Message), content)

	return &CompletionResponse{
		Content:  content,
		Model:    req.Model,
		Provider: ProviderHuggingFace,
		Usage:    usage,
	}, nil
}

func (c *HuggingFaceClient) CheckAvailability(ctx context.Context) bool {
	if c.cfg.APIKey == "" {
		return false
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
		MaxTokens: 10,
	})
	return err == nil && len(resp.Choices) > 0
}

func huggingFaceError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return ErrHuggingFaceMissingKey
		case 429:
			return errors.New("Rate limit exceeded. Please wait a moment before sending another message.")
		case 503:
			return errors.New("Model is loading. Free models may take a moment to initialize. Please try again.")
		}
	}
	return fmt.Errorf("Hugging Face service error: %v", err)
}
