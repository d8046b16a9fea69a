package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

var (
	ErrGeminiMissingKey = errors.New("No API key provided. Please add your Gemini API key in settings.")
	ErrGeminiInvalidKey = errors.New("Invalid or missing Gemini API key. Please check your configuration.")
	ErrGeminiQuota      = errors.New("Gemini API quota exceeded. Please try again later or upgrade your plan.")
	ErrGeminiRateLimit  = errors.New("Rate limit exceeded. Please wait a moment before sending another message.")
	ErrGeminiEmpty      = errors.New("No response generated from AI service")
)

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// GeminiClient talks to the Generative Language REST API. History is
// flattened into a single completion-style transcript and sent as one user
// turn.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = geminiDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *GeminiClient) Name() string { return ProviderGemini }

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (c *GeminiClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrGeminiMissingKey
	}
	req = req.normalized()
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	prompt := BuildTranscript(req.History, req.Message)
	raw, err := c.generateContent(ctx, req.Model, prompt, geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
		TopP:            0.8,
		TopK:            40,
	})
	if err != nil {
		return nil, err
	}

	text := candidateText(raw)
	if text == "" {
		return nil, ErrGeminiEmpty
	}

	usage := Usage{
		PromptTokens:     raw.UsageMetadata.PromptTokenCount,
		CompletionTokens: raw.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      raw.UsageMetadata.TotalTokenCount,
	}
	backfillUsage(&usage, prompt, text)

	return &CompletionResponse{
		Content:  strings.TrimSpace(text),
		Model:    req.Model,
		Provider: ProviderGemini,
		Usage:    usage,
	}, nil
}

func (c *GeminiClient) CheckAvailability(ctx context.Context) bool {
	if c.cfg.APIKey == "" {
		return false
	}
	raw, err := c.generateContent(ctx, c.cfg.Model, "Hello", geminiGenerationConfig{
		Temperature:     DefaultTemperature,
		MaxOutputTokens: 10,
	})
	if err != nil {
		return false
	}
	return candidateText(raw) != ""
}

func (c *GeminiClient) generateContent(ctx context.Context, model, prompt string, genCfg geminiGenerationConfig) (*geminiResponse, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: genCfg,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gemini request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Gemini service error: %v", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, geminiStatusError(resp.StatusCode, rawBody)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse gemini json failed: %w", err)
	}
	return &parsed, nil
}

// geminiStatusError converts upstream HTTP failures into the distinct,
// user-facing failure modes callers persist into the conversation.
func geminiStatusError(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrGeminiInvalidKey
	case status == http.StatusTooManyRequests && bytes.Contains(bytes.ToLower(body), []byte("quota")):
		return ErrGeminiQuota
	case status == http.StatusTooManyRequests:
		return ErrGeminiRateLimit
	default:
		return fmt.Errorf("Gemini service error: status %d: %s", status, strings.TrimSpace(string(body)))
	}
}

func candidateText(resp *geminiResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// BuildTranscript renders history as a completion-style prompt: one line
// per turn, then the new user turn and a trailing Assistant marker.
func BuildTranscript(history []Turn, message string) string {
	var b strings.Builder
	for _, turn := range history {
		label := "Assistant"
		if turn.Role == "user" {
			label = "Human"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("Human: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}
