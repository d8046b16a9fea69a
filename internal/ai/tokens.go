package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens counts text tokens with the cl100k_base encoding. Returns
// 0 when the encoding cannot be loaded; usage reporting is best effort.
func EstimateTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil || text == "" {
		return 0
	}
	return len(encoding.Encode(text, nil, nil))
}

// backfillUsage fills zeroed counters with local estimates. Some upstreams
// (Gemini free tier among them) report no usage at all.
func backfillUsage(usage *Usage, prompt, completion string) {
	if usage.TotalTokens > 0 {
		return
	}
	usage.PromptTokens = EstimateTokens(prompt)
	usage.CompletionTokens = EstimateTokens(completion)
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
}
