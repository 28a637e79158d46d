package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = anthropic.ModelClaude3_5HaikuLatest

// Anthropic generates completions through the Anthropic messages API.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropic(apiKey, model string) *Anthropic {
	m := defaultAnthropicModel
	if strings.TrimSpace(model) != "" {
		m = anthropic.Model(model)
	}
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.params(req, maxTokensComplete))
	if err != nil {
		return "", p.classify(err)
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("anthropic: empty completion response")
	}
	return full.String(), nil
}

func (p *Anthropic) Stream(ctx context.Context, req Request, onDelta DeltaHandler) (string, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.params(req, maxTokensStream))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok || delta.Delta.Text == "" {
			continue
		}
		full.WriteString(delta.Delta.Text)
		if onDelta != nil {
			if err := onDelta(delta.Delta.Text); err != nil {
				return full.String(), err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), p.classify(err)
	}
	return full.String(), nil
}

func (p *Anthropic) params(req Request, maxTokens int64) anthropic.MessageNewParams {
	// The messages API takes the system prompt out of band and names the
	// model-side role "assistant" like we do, so mapping is direct.
	msgs := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)))

	return anthropic.MessageNewParams{
		Model:       p.model,
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: req.SystemPrompt}},
		Messages:    msgs,
		Temperature: anthropic.Float(temperature),
	}
}

func (p *Anthropic) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: anthropic: %v", ErrQuotaExceeded, err)
		case apierr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: anthropic: %v", ErrUnavailable, err)
		}
	}
	return classifyByMessage("anthropic", err)
}
