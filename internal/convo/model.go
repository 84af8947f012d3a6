package convo

import "time"

// Role identifies who produced a turn.
type Role string

const (
	// RoleCaller is the transcribed speech of the person on the phone.
	RoleCaller Role = "caller"

	// RoleAssistant is a reply the companion spoke back.
	RoleAssistant Role = "assistant"
)

// State tracks where a call is in its lifecycle.
type State string

const (
	// StateGreeting means the session exists but the greeting has not been spoken yet
	StateGreeting State = "greeting"

	// StateListening means the call is active and waiting for the next utterance
	StateListening State = "listening"

	// StateEnded means the call finished (farewell, reprompt exhaustion, or status callback)
	StateEnded State = "ended"
)

// Turn is one utterance exchange within a call.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the conversation state for a single phone call, keyed by the
// Twilio call SID. Turns are append-only and ordered by occurrence.
type Session struct {
	CallID     string    `json:"call_id"`
	State      State     `json:"state"`
	Turns      []Turn    `json:"turns"`
	OffTopic   int       `json:"off_topic"`
	Reprompts  int       `json:"reprompts"`
	Ended      bool      `json:"ended"`
	EndReason  string    `json:"end_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// Reply is what the webhook handler should speak back to the caller.
type Reply struct {
	Text    string
	EndCall bool
}
