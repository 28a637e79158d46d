package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewRequiresKeyForLiveModes(t *testing.T) {
	if _, err := New(Config{Mode: "openai"}); err == nil {
		t.Fatalf("openai mode without key should fail")
	}
	if _, err := New(Config{Mode: "anthropic"}); err == nil {
		t.Fatalf("anthropic mode without key should fail")
	}
	if _, err := New(Config{Mode: "auto"}); err == nil {
		t.Fatalf("auto mode without any key should fail")
	}
	if _, err := New(Config{Mode: "banana"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New(Config{Mode: "mock"})
	if err != nil {
		t.Fatalf("mock mode error = %v", err)
	}
	if p.Name() != "mock" {
		t.Fatalf("Name() = %q, want mock", p.Name())
	}

	p, err = New(Config{Mode: "auto", OpenAIKey: "sk-test"})
	if err != nil {
		t.Fatalf("auto with openai key error = %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("auto with openai key picked %q", p.Name())
	}

	p, err = New(Config{Mode: "auto", AnthropicKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("auto with anthropic key error = %v", err)
	}
	if p.Name() != "anthropic" {
		t.Fatalf("auto with anthropic key picked %q", p.Name())
	}
}

func TestClassifyByMessage(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"you have exceeded your quota", ErrQuotaExceeded},
		{"rate limit reached", ErrQuotaExceeded},
		{"network is unreachable", ErrUnavailable},
		{"connection refused", ErrUnavailable},
		{"i/o timeout", ErrUnavailable},
	}
	for _, tc := range cases {
		got := classifyByMessage("test", errors.New(tc.msg))
		if !errors.Is(got, tc.want) {
			t.Fatalf("classifyByMessage(%q) = %v, want wrapping %v", tc.msg, got, tc.want)
		}
	}

	plain := errors.New("model refused")
	got := classifyByMessage("test", plain)
	if errors.Is(got, ErrQuotaExceeded) || errors.Is(got, ErrUnavailable) {
		t.Fatalf("generic failure classified as %v", got)
	}
	if !errors.Is(got, plain) {
		t.Fatalf("generic failure lost its cause: %v", got)
	}
}

func TestMockStreamMatchesComplete(t *testing.T) {
	m := NewMock()
	req := Request{UserMessage: "vorrei prenotare"}

	whole, err := m.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var chunks []string
	streamed, err := m.Stream(context.Background(), req, func(delta string) error {
		chunks = append(chunks, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if streamed != whole {
		t.Fatalf("Stream() = %q, Complete() = %q", streamed, whole)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != whole {
		t.Fatalf("chunks do not reassemble the reply")
	}
}

func TestMockHonorsCancellation(t *testing.T) {
	m := NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Complete(ctx, Request{UserMessage: "pronto"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() error = %v, want context.Canceled", err)
	}
	if _, err := m.Stream(ctx, Request{UserMessage: "pronto"}, func(string) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Stream() error = %v, want context.Canceled", err)
	}
}

func TestDeltaHandlerErrorStopsMockStream(t *testing.T) {
	m := NewMock()
	boom := errors.New("writer gone")

	calls := 0
	_, err := m.Stream(context.Background(), Request{UserMessage: "pronto"}, func(string) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Stream() error = %v, want handler error", err)
	}
	if calls != 1 {
		t.Fatalf("handler called %d times after failing, want 1", calls)
	}
}
