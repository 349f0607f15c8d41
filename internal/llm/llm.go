// Package llm wraps the text-in/text-out model service used by the revision
// pipeline.
package llm

import (
	"context"

	"github.com/roshanmishra15/site-builder/config"
)

// Client is the model service. Implementations return the raw completion
// text; an empty string is a valid (if useless) answer.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is a single chat completion request.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one prior turn sent along with the prompt.
type Message struct {
	Role    string
	Content string
}

// New picks the OpenAI client when an API key is configured and the offline
// echo client otherwise.
func New(cfg *config.LLMConfig) (Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return Echo{}, nil
	}
	return NewOpenAI(cfg)
}
