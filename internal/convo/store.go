package convo

import "context"

// Store is the persistence interface for call sessions.
//
// Twilio delivers webhooks for a single call serially, so implementations
// need not serialize mutations within one call ID, but they must be safe
// under concurrent access across different call IDs.
type Store interface {
	// GetOrCreate returns the session for callID, creating it when none
	// exists. A session that has already ended is replaced with a fresh
	// one: a webhook after hangup starts a new conversation.
	GetOrCreate(ctx context.Context, callID string) (*Session, error)

	// Get returns a copy of the session, ok=false when absent.
	Get(ctx context.Context, callID string) (*Session, bool, error)

	// Update persists the mutated session. Turns are append-only; an
	// Update must never drop turns recorded by a previous Update.
	Update(ctx context.Context, s *Session) error

	// End marks the session ended with the given reason. Unknown call IDs
	// are a no-op.
	End(ctx context.Context, callID, reason string) error

	// Evict removes the session outright (call status callback).
	Evict(ctx context.Context, callID string) error
}

// Provider is the interface for any LLM backend able to continue a call.
type Provider interface {
	Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// LLMRequest is the input to the LLM provider: the fixed system instruction
// plus the full conversation so far, newest utterance last.
type LLMRequest struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Message is one chat-completion message derived from a session turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse is the provider's reply text plus accounting.
type LLMResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Usage is token accounting reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
