package notify

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidateDestination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		to    string
		valid bool
	}{
		{"+15551230123", true},
		{"+442071838750", true},
		{"+254712345678", true},
		{"not-a-number", false},
		{"", false},
		{"15551230123", false},   // missing plus
		{"+05551230123", false},  // leading zero
		{"+1555123", true},       // short but plausible
		{"+1", false},            // too short
		{"+1555123012345678", false}, // too long
		{"+1 555 123 0123", false},   // spaces
	}

	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			t.Parallel()

			err := ValidateDestination(tt.to)
			if tt.valid && err != nil {
				t.Errorf("ValidateDestination(%q) = %v, want nil", tt.to, err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatalf("ValidateDestination(%q) = nil, want error", tt.to)
				}
				if KindOf(err) != KindInvalidDestination {
					t.Errorf("kind = %q, want invalid_destination", KindOf(err))
				}
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if got := KindOf(&Error{Kind: KindAuth, Message: "nope"}); got != KindAuth {
		t.Errorf("KindOf = %q, want auth", got)
	}
	wrapped := fmt.Errorf("sending: %w", &Error{Kind: KindConfig, Message: "no sender"})
	if got := KindOf(wrapped); got != KindConfig {
		t.Errorf("KindOf(wrapped) = %q, want config", got)
	}
	if got := KindOf(errors.New("mystery")); got != KindUnavailable {
		t.Errorf("KindOf(plain) = %q, want provider_unavailable", got)
	}
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindInvalidDestination, Code: 21211, Message: "bad number"}
	msg := e.Error()
	for _, want := range []string{"invalid_destination", "21211", "bad number"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}
