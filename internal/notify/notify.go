// Package notify defines the outbound notification boundary: request types,
// the Sender interface the HTTP layer depends on, and a typed error taxonomy
// so the dashboard can show actionable messages instead of a generic failure.
package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Kind classifies a notification failure.
type Kind string

const (
	// KindAuth means the provider rejected our credentials.
	KindAuth Kind = "auth"

	// KindInvalidDestination means the destination number is unusable.
	KindInvalidDestination Kind = "invalid_destination"

	// KindRejected means the provider refused the request for a reason
	// other than the destination number, e.g. a missing message body.
	KindRejected Kind = "rejected"

	// KindUnavailable means the provider could not be reached or failed.
	KindUnavailable Kind = "provider_unavailable"

	// KindConfig means the request cannot be built from the configured
	// sender identity (missing from-number, missing TwiML).
	KindConfig Kind = "config"
)

// Error is a classified notification failure.
type Error struct {
	Kind    Kind
	Code    int // provider error code when known
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("notify: %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("notify: %s: %s", e.Kind, e.Message)
}

// KindOf extracts the Kind from an error chain; unknown errors map to
// KindUnavailable.
func KindOf(err error) Kind {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return KindUnavailable
}

// SMSRequest is one outbound text message. From and MessagingService are
// optional per-request overrides of the configured sender identity.
type SMSRequest struct {
	To               string `json:"to"`
	Body             string `json:"body"`
	From             string `json:"from,omitempty"`
	MessagingService string `json:"messaging_service,omitempty"`
}

// CallRequest is one outbound voice call. Exactly one of TwiMLURL or TwiML
// drives the call; both empty falls back to the configured default URL.
type CallRequest struct {
	To       string `json:"to"`
	From     string `json:"from,omitempty"`
	TwiMLURL string `json:"twiml_url,omitempty"`
	TwiML    string `json:"twiml,omitempty"`
}

// Sender issues notifications through the messaging provider and returns the
// provider-assigned identifier.
type Sender interface {
	SendSMS(ctx context.Context, req SMSRequest) (sid string, err error)
	StartCall(ctx context.Context, req CallRequest) (sid string, err error)
}

// e164 is the syntactic plausibility check run before any provider call.
var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidateDestination rejects numbers that cannot possibly be E.164 without
// spending a provider round trip on them.
func ValidateDestination(to string) error {
	if !e164.MatchString(to) {
		return &Error{
			Kind:    KindInvalidDestination,
			Message: fmt.Sprintf("destination %q is not an E.164 phone number", to),
		}
	}
	return nil
}
