// Package provider abstracts the text-completion capability behind the bot.
// Concrete backends wrap the OpenAI and Anthropic SDKs; a mock backend keeps
// the service usable without credentials.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy. Backends wrap SDK errors with one of these sentinels so
// the transport layer can map them to status codes.
var (
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrUnavailable   = errors.New("provider unavailable")
)

// Message is one turn of context sent to a backend. Role is the neutral
// "user"/"assistant" pair; any provider-specific naming stays inside the
// backend that needs it.
type Message struct {
	Role    string
	Content string
}

// Request carries everything a backend needs for one completion.
type Request struct {
	SystemPrompt string
	History      []Message
	UserMessage  string
}

// DeltaHandler receives streamed text fragments in order.
type DeltaHandler func(delta string) error

// Completion is the black-box text-generation capability.
type Completion interface {
	Name() string
	// Complete returns the whole reply in one shot.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream emits fragments through onDelta and returns the assembled text.
	Stream(ctx context.Context, req Request, onDelta DeltaHandler) (string, error)
}

// Generation limits shared by the live backends.
const (
	maxTokensComplete = 100
	maxTokensStream   = 50
	temperature       = 0.8
)

// Config selects and configures a backend at startup.
type Config struct {
	Mode           string
	OpenAIKey      string
	AnthropicKey   string
	OpenAIModel    string
	AnthropicModel string
}

// New builds the configured backend. A live mode without a usable key is a
// startup error; the service must not come up half-configured.
func New(cfg Config) (Completion, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIKey) == "" {
			return nil, errors.New("AI_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel), nil
	case "anthropic":
		if strings.TrimSpace(cfg.AnthropicKey) == "" {
			return nil, errors.New("AI_PROVIDER=anthropic but ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel), nil
	case "mock":
		return NewMock(), nil
	case "auto":
		if strings.TrimSpace(cfg.OpenAIKey) != "" {
			return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel), nil
		}
		if strings.TrimSpace(cfg.AnthropicKey) != "" {
			return NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel), nil
		}
		return nil, errors.New("no API key found: set OPENAI_API_KEY or ANTHROPIC_API_KEY, or AI_PROVIDER=mock")
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q (expected auto|openai|anthropic|mock)", cfg.Mode)
	}
}

// classifyByMessage is the fallback classifier when the SDK error carries no
// status code: quota wording maps to the quota sentinel, connectivity wording
// to the unavailable sentinel.
func classifyByMessage(name string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "limit"):
		return fmt.Errorf("%w: %s: %v", ErrQuotaExceeded, name, err)
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "unavailable"):
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	default:
		return fmt.Errorf("%s: %w", name, err)
	}
}
