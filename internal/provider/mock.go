package provider

import (
	"context"
	"strings"
)

// Mock produces deterministic operator replies without any credentials.
// Useful for local development and for the HTTP tests.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return m.reply(req), nil
}

// Stream emits the canned reply word by word so callers exercise the same
// chunk path a live backend produces.
func (m *Mock) Stream(ctx context.Context, req Request, onDelta DeltaHandler) (string, error) {
	reply := m.reply(req)
	if onDelta == nil {
		return reply, nil
	}

	words := strings.SplitAfter(reply, " ")
	for _, w := range words {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if err := onDelta(w); err != nil {
			return "", err
		}
	}
	return reply, nil
}

func (m *Mock) reply(req Request) string {
	input := strings.TrimSpace(req.UserMessage)
	if input == "" {
		return "La comprendo perfettamente, ma al momento non posso fare nulla."
	}
	return "La comprendo perfettamente, ma per \"" + input + "\" deve rivolgersi a un altro reparto."
}
