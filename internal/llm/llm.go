package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/hlavac/versionone-go/internal/config"
)

// NewClient creates a new completion provider client. A custom base URL
// lets the pipeline talk to any OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(c)
}
