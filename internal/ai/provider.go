// Package ai talks to text-generation backends and dispatches between a
// primary and a fallback backend.
package ai

import (
	"context"
	"fmt"

	"github.com/keshon/autoresponder/internal/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one generation call. Messages are ordered oldest first and end
// with the message being answered.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the backend named by engine. "none" and "" yield a nil provider
// and no error so that a fallback can be left unset.
func New(ctx context.Context, engine string, cfg *config.Config) (Provider, error) {
	switch engine {
	case "", "none":
		return nil, nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai", "pollinations":
		return NewOpenAICompat(cfg.OpenAIURL, cfg.OpenAIModel, cfg.OpenAIKey), nil
	default:
		return nil, fmt.Errorf("unsupported AI backend: %s", engine)
	}
}

// withSystem prepends the system prompt as a message for chat-style APIs.
func withSystem(req Request) []Message {
	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	return append(msgs, req.Messages...)
}
