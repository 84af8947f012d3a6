package convo

import (
	"context"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

const (
	// DefaultMaxReprompts is how many silent turns are tolerated before
	// the call is ended with an apology.
	DefaultMaxReprompts = 2

	// DefaultLLMTimeout bounds the per-turn provider call. Twilio drops
	// webhooks that take more than ~10s, so this must stay well under.
	DefaultLLMTimeout = 8 * time.Second

	// DefaultMaxTokens caps a single spoken reply; the prompt asks for
	// one to three sentences, this is a hard backstop.
	DefaultMaxTokens = 256
)

// EngineHooks lets metrics observe engine activity without the engine
// depending on Prometheus.
type EngineHooks struct {
	OnTurn    func(decision Decision)
	OnLLMCall func(inputTokens, outputTokens int, duration float64, failed bool)
	OnSession func()
	OnHangup  func(reason string)
}

// Options tunes the engine. Zero values fall back to the defaults above.
type Options struct {
	MaxReprompts int
	LLMTimeout   time.Duration
	MaxTokens    int
}

// Engine drives one call turn at a time: it consults the session store,
// classifies the utterance, and calls the LLM provider only for in-scope
// questions.
type Engine struct {
	store        Store
	provider     Provider
	logger       log.Logger
	hooks        EngineHooks
	maxReprompts int
	llmTimeout   time.Duration
	maxTokens    int
}

// NewEngine creates a conversation engine.
func NewEngine(store Store, provider Provider, logger log.Logger, hooks EngineHooks, opts Options) *Engine {
	if store == nil {
		panic(xerrors.New("session store is required"))
	}
	if provider == nil {
		panic(xerrors.New("llm provider is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	if opts.MaxReprompts <= 0 {
		opts.MaxReprompts = DefaultMaxReprompts
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Engine{
		store:        store,
		provider:     provider,
		logger:       logger,
		hooks:        hooks,
		maxReprompts: opts.MaxReprompts,
		llmTimeout:   opts.LLMTimeout,
		maxTokens:    opts.MaxTokens,
	}
}

// HandleTurn processes one webhook invocation for a call and returns what to
// speak next. Provider failures never surface as errors: they become a spoken
// apology and the call keeps listening. Only store failures return an error.
func (e *Engine) HandleTurn(ctx context.Context, callID, utterance string) (*Reply, error) {
	L := e.logger.With("call_id", callID)

	sess, err := e.store.GetOrCreate(ctx, callID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	// First webhook for this call: speak the fixed greeting and start
	// listening. Any speech on the very first webhook is ignored, the
	// platform has not gathered anything yet.
	if sess.State == StateGreeting {
		if e.hooks.OnSession != nil {
			e.hooks.OnSession()
		}
		sess.State = StateListening
		return e.say(ctx, sess, GreetingText, now)
	}

	utterance = strings.TrimSpace(utterance)

	// Silence or unintelligible speech: re-prompt a bounded number of
	// times, then give up politely.
	if utterance == "" {
		sess.Reprompts++
		if sess.Reprompts > e.maxReprompts {
			L.Info(ctx, "reprompt budget exhausted", "reprompts", sess.Reprompts)
			return e.hangup(ctx, sess, GiveUpText, "reprompt_exhausted", now)
		}
		return e.say(ctx, sess, RepromptText, now)
	}
	sess.Reprompts = 0

	decision := Classify(utterance)
	if e.hooks.OnTurn != nil {
		e.hooks.OnTurn(decision)
	}
	sess.Turns = append(sess.Turns, Turn{Role: RoleCaller, Text: utterance, At: now})

	switch decision {
	case DecisionFarewell:
		return e.hangup(ctx, sess, FarewellText, "farewell", now)

	case DecisionOutOfScope:
		// Fixed refusal, no LLM call: keeps off-topic replies consistent
		// and bounds cost.
		sess.OffTopic++
		return e.say(ctx, sess, RefusalText, now)
	}

	// In scope: single LLM attempt with a bounded timeout.
	cctx, cancel := context.WithTimeout(ctx, e.llmTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.provider.Send(cctx, BuildRequest(sess, e.maxTokens))
	dur := time.Since(start).Seconds()

	if err != nil {
		L.Error(ctx, err, "llm call failed", "duration", dur)
		if e.hooks.OnLLMCall != nil {
			e.hooks.OnLLMCall(0, 0, dur, true)
		}
		return e.say(ctx, sess, LLMFailureText, now)
	}
	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, dur, false)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		L.Warn(ctx, "llm returned empty reply", "model", resp.Model)
		return e.say(ctx, sess, LLMFailureText, now)
	}

	L.Info(ctx, "reply generated",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", dur,
	)
	return e.say(ctx, sess, text, now)
}

// EndCall handles the Twilio call-status callback: terminal statuses evict
// the session so memory stays proportional to active calls.
func (e *Engine) EndCall(ctx context.Context, callID, status string) error {
	switch status {
	case "completed", "failed", "busy", "no-answer", "canceled":
	default:
		return nil
	}
	if e.hooks.OnHangup != nil {
		e.hooks.OnHangup("status_" + status)
	}
	e.logger.Info(ctx, "call ended", "call_id", callID, "status", status)
	return e.store.Evict(ctx, callID)
}

// say appends an assistant turn, persists the session, and keeps listening.
func (e *Engine) say(ctx context.Context, sess *Session, text string, now time.Time) (*Reply, error) {
	sess.Turns = append(sess.Turns, Turn{Role: RoleAssistant, Text: text, At: now})
	sess.LastActive = now
	if err := e.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	return &Reply{Text: text}, nil
}

// hangup appends the closing line, marks the session ended, and tells the
// handler to emit hangup markup.
func (e *Engine) hangup(ctx context.Context, sess *Session, text, reason string, now time.Time) (*Reply, error) {
	sess.Turns = append(sess.Turns, Turn{Role: RoleAssistant, Text: text, At: now})
	sess.LastActive = now
	if err := e.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	if err := e.store.End(ctx, sess.CallID, reason); err != nil {
		return nil, err
	}
	if e.hooks.OnHangup != nil {
		e.hooks.OnHangup(reason)
	}
	return &Reply{Text: text, EndCall: true}, nil
}
