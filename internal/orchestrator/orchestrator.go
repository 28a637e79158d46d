// Package orchestrator drives one response flow per user turn: a staged
// sequence of typing indicators, streamed completion chunks, fake transfers,
// timed holds and frustrating payoffs, emitted as typed events.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gallmarco/centralino/internal/observability"
	"github.com/gallmarco/centralino/internal/policy"
	"github.com/gallmarco/centralino/internal/prompt"
	"github.com/gallmarco/centralino/internal/provider"
	"github.com/gallmarco/centralino/internal/session"
)

// providerHistoryWindow is how much context goes to the completion backend.
// Deliberately narrower than the store's 20-message history window and its
// 50-message cap.
const providerHistoryWindow = 10

// Timing groups every artificial delay in the flow. All delays run through
// an injectable sleep so tests finish without real elapsed time.
type Timing struct {
	TypingMin       time.Duration
	TypingMax       time.Duration
	TransferPause   time.Duration
	HoldMin         time.Duration
	HoldMax         time.Duration
	PatternPause    time.Duration
	ProviderTimeout time.Duration
}

// DefaultTiming mirrors the pacing of a human operator who is in no hurry.
func DefaultTiming() Timing {
	return Timing{
		TypingMin:       1 * time.Second,
		TypingMax:       3 * time.Second,
		TransferPause:   1 * time.Second,
		HoldMin:         15 * time.Second,
		HoldMax:         45 * time.Second,
		PatternPause:    2 * time.Second,
		ProviderTimeout: 30 * time.Second,
	}
}

// SleepFunc pauses for d or returns early with ctx's error.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Turn is the input for one response flow. History is the conversation
// before the current user message.
type Turn struct {
	SessionID   string
	UserMessage string
	History     []session.Message
	Level       int
}

// Options configure an Orchestrator. Rand and Sleep exist so tests can force
// branch choices and skip delays.
type Options struct {
	Rand   *rand.Rand
	Sleep  SleepFunc
	Timing Timing
}

type Orchestrator struct {
	provider provider.Completion
	metrics  *observability.Metrics
	timing   Timing
	sleep    SleepFunc

	mu  sync.Mutex
	rng *rand.Rand
}

func New(p provider.Completion, metrics *observability.Metrics, opts Options) *Orchestrator {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	timing := opts.Timing
	if timing == (Timing{}) {
		timing = DefaultTiming()
	}
	return &Orchestrator{
		provider: p,
		metrics:  metrics,
		timing:   timing,
		sleep:    sleep,
		rng:      rng,
	}
}

// Run starts one response flow and returns its event stream. The channel is
// closed when the flow finishes or ctx is cancelled; a cancelled flow stops
// mid-sequence without emitting further events.
func (o *Orchestrator) Run(ctx context.Context, turn Turn) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		defer func() {
			// The flow must never raise past its boundary: anything
			// unhandled becomes a single in-band error event.
			if r := recover(); r != nil {
				log.Printf("orchestrator: recovered from %v (session %s)", r, turn.SessionID)
				o.emit(ctx, out, Event{Type: EventError, Data: prompt.FallbackApology})
			}
		}()
		o.run(ctx, turn, out)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, turn Turn, out chan<- Event) {
	if !o.emit(ctx, out, Event{Type: EventSessionID, Data: turn.SessionID}) {
		return
	}

	sentiment := policy.DetectSentiment(turn.UserMessage)
	pattern := o.choosePattern(sentiment, turn.Level)

	// Deep into the conversation the operator opens every turn with a stock
	// non-answer before the pattern plays out.
	if turn.Level >= 4 {
		if !o.emit(ctx, out, Event{Type: EventMessage, Data: o.withRNG(prompt.EscalationPhrase)}) {
			return
		}
	}

	var err error
	switch pattern {
	case policy.PatternDirectCompletion:
		err = o.runCompletionFlow(ctx, turn, out)
	case policy.PatternTransferLoop:
		err = o.runTransferLoop(ctx, out)
	case policy.PatternInfoRequest:
		err = o.runInfoRequest(ctx, out)
	case policy.PatternSystemDown:
		err = o.runSystemDown(ctx, out)
	case policy.PatternCallbackPromise:
		err = o.runCallbackPromise(ctx, out)
	case policy.PatternWrongDepartment:
		err = o.runWrongDepartment(ctx, out)
	default:
		err = o.runCompletionFlow(ctx, turn, out)
	}

	outcome := "ok"
	if err != nil {
		outcome = "aborted"
		if ctx.Err() == nil {
			// Non-cancellation failures surface in-band, then the flow ends.
			o.emit(ctx, out, Event{Type: EventError, Data: prompt.FallbackApology})
			outcome = "error"
		}
	}
	if o.metrics != nil {
		o.metrics.ChatTurns.WithLabelValues(string(pattern), outcome).Inc()
	}
	if err == nil || ctx.Err() == nil {
		o.emit(ctx, out, Event{Type: EventDone})
	}
}

// runCompletionFlow is the live-model branch: typing, then either a direct
// frustrating stream or a helpful reply followed by a fake transfer, a timed
// hold and a frustrating payoff. The branch choice is a fair coin flip.
func (o *Orchestrator) runCompletionFlow(ctx context.Context, turn Turn, out chan<- Event) error {
	if !o.emit(ctx, out, Event{Type: EventTyping, Data: prompt.TypingIndicator}) {
		return ctx.Err()
	}
	if err := o.sleep(ctx, o.uniform(o.timing.TypingMin, o.timing.TypingMax)); err != nil {
		return err
	}

	base, err := prompt.SystemPrompt(turn.Level)
	if err != nil {
		return err
	}
	system := o.withRNG(func(r *rand.Rand) string {
		return prompt.WithRandomScenario(r, base, prompt.FrustratingScenarios())
	})

	req := provider.Request{
		SystemPrompt: system,
		History:      providerHistory(turn.History),
		UserMessage:  turn.UserMessage,
	}

	if o.coin() {
		return o.streamCompletion(ctx, req, out)
	}
	return o.runHelpfulThenFrustrating(ctx, req, out)
}

// streamCompletion re-emits each provider fragment as a message_chunk event,
// preserving order. Provider failures become a fallback apology in-band.
func (o *Orchestrator) streamCompletion(ctx context.Context, req provider.Request, out chan<- Event) error {
	callCtx, cancel := context.WithTimeout(ctx, o.timing.ProviderTimeout)
	defer cancel()

	started := time.Now()
	first := true
	_, err := o.provider.Stream(callCtx, req, func(delta string) error {
		if first {
			first = false
			if o.metrics != nil {
				o.metrics.ObserveFirstChunkLatency(time.Since(started))
			}
		}
		if !o.emit(ctx, out, Event{Type: EventMessageChunk, Data: delta}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A timed-out call counts the same as any other provider failure.
		o.countProviderError(err)
		log.Printf("orchestrator: provider stream failed: %v", err)
		if !o.emit(ctx, out, Event{Type: EventMessageChunk, Data: prompt.FallbackApology}) {
			return ctx.Err()
		}
	}
	return nil
}

// runHelpfulThenFrustrating plays the long con: one genuinely helpful reply,
// a fake transfer announcement, a hold measured in tens of seconds, and a
// frustrating payoff.
func (o *Orchestrator) runHelpfulThenFrustrating(ctx context.Context, req provider.Request, out chan<- Event) error {
	helpful := req
	helpful.SystemPrompt = req.SystemPrompt + " " + prompt.HelpfulSuffix

	if err := o.streamCompletion(ctx, helpful, out); err != nil {
		return err
	}

	if err := o.sleep(ctx, o.timing.TransferPause); err != nil {
		return err
	}
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: o.withRNG(prompt.TransferPhrase)}) {
		return ctx.Err()
	}
	if !o.emit(ctx, out, Event{Type: EventWaitingStart, Data: "transfer"}) {
		return ctx.Err()
	}

	if err := o.sleep(ctx, o.uniform(o.timing.HoldMin, o.timing.HoldMax)); err != nil {
		return err
	}

	if !o.emit(ctx, out, Event{Type: EventWaitingEnd}) {
		return ctx.Err()
	}
	scenarios := prompt.FrustratingScenarios()
	payoff := scenarios[o.intn(len(scenarios))]
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: payoff}) {
		return ctx.Err()
	}
	return nil
}

func (o *Orchestrator) choosePattern(sentiment policy.Sentiment, level int) policy.Pattern {
	o.mu.Lock()
	defer o.mu.Unlock()
	return policy.ChoosePattern(o.rng, sentiment, level)
}

// emit delivers one event unless the caller has gone away.
func (o *Orchestrator) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		if o.metrics != nil {
			o.metrics.StreamEvents.WithLabelValues(string(ev.Type)).Inc()
		}
		return true
	}
}

func (o *Orchestrator) countProviderError(err error) {
	if o.metrics == nil {
		return
	}
	code := "generic"
	switch {
	case errors.Is(err, provider.ErrQuotaExceeded):
		code = "quota"
	case errors.Is(err, provider.ErrUnavailable):
		code = "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	}
	o.metrics.ProviderErrors.WithLabelValues(o.provider.Name(), code).Inc()
}

// withRNG runs a single draw under the RNG lock. The shared *rand.Rand must
// never escape the critical section.
func (o *Orchestrator) withRNG(f func(r *rand.Rand) string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return f(o.rng)
}

func (o *Orchestrator) coin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Intn(2) == 0
}

func (o *Orchestrator) intn(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Intn(n)
}

func (o *Orchestrator) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return min + time.Duration(o.rng.Int63n(int64(max-min)))
}

func providerHistory(history []session.Message) []provider.Message {
	if len(history) > providerHistoryWindow {
		history = history[len(history)-providerHistoryWindow:]
	}
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		out = append(out, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Collect drains an event stream, concatenating spoken payloads into the
// complete assistant response. It is how the non-streaming path and tests
// consume a flow.
func Collect(events <-chan Event) (full string, seen []Event) {
	for ev := range events {
		seen = append(seen, ev)
		if ev.Spoken() {
			full += ev.Data
		}
	}
	return full, seen
}
