package ai

import "context"

const (
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"

	// DefaultModel is the model used when a request names none.
	DefaultModel = "gemini-2.5-flash"

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// Turn is one prior exchange in the conversation, oldest first.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Message     string
	History     []Turn
	Model       string
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type CompletionResponse struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// Provider is a text-generation backend behind a uniform call contract.
// Failure modes are signalled through error messages since callers persist
// them verbatim into the conversation.
type Provider interface {
	Name() string
	GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// CheckAvailability issues a minimal request to probe reachability.
	// Advisory only; routing never consults it.
	CheckAvailability(ctx context.Context) bool
}

// normalized fills the request defaults. The model default is left to each
// provider since they default to different families.
func (r CompletionRequest) normalized() CompletionRequest {
	if r.Temperature <= 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}
