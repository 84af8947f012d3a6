package convo

import "strings"

// Decision is the enumerated outcome of classifying a caller utterance.
type Decision string

const (
	DecisionInScope    Decision = "in_scope"
	DecisionOutOfScope Decision = "out_of_scope"
	DecisionFarewell   Decision = "farewell"
)

// Canned responses. These are spoken verbatim; tests assert on them, so any
// wording change must update the dashboard copy too.
const (
	GreetingText = "Hello, this is your maternal health companion. " +
		"You can ask me anything about your health or your baby's health. " +
		"What would you like to know?"

	RefusalText = "I'm sorry, I can only help with questions about maternal and newborn health. " +
		"Is there anything about your health or your baby's health I can help with, or would you like to say goodbye?"

	FarewellText = "Thank you for calling. Take good care of yourself and your baby. Goodbye."

	RepromptText = "I didn't catch that. Could you please repeat your question?"

	GiveUpText = "I'm sorry, I'm having trouble hearing you. Please call again later. Goodbye."

	LLMFailureText = "I'm having trouble right now, please try again."
)

// SystemPrompt is the fixed instruction sent with every LLM request.
// The topic guardrail and the closing invitation are part of the contract
// with the voice flow: the reply must funnel the caller back into the
// gather loop or toward a goodbye.
const SystemPrompt = "You are a caring phone companion for new and expecting mothers. " +
	"Answer only questions about maternal and newborn health: pregnancy, childbirth, " +
	"postpartum recovery, breastfeeding, and infant care. " +
	"Answer in one to three short sentences suitable for text-to-speech. " +
	"Never give a diagnosis; advise seeing a health worker for anything serious. " +
	"End every reply by inviting the caller to ask another question or say goodbye."

// farewellPhrases end the call when the utterance amounts to one of them.
var farewellPhrases = []string{
	"goodbye",
	"good bye",
	"bye",
	"bye bye",
	"that's all",
	"that is all",
	"thats all",
	"no thank you",
	"nothing else",
	"hang up",
}

// scopeKeywords is a coarse allowlist for the maternal/newborn guardrail.
// A single hit marks the utterance in scope; the LLM prompt carries the
// real guardrail, this check only bounds cost for clearly unrelated asks.
var scopeKeywords = []string{
	"baby", "babies", "infant", "newborn", "child",
	"pregnan", "birth", "postpartum", "postnatal", "prenatal", "antenatal",
	"breastfeed", "breast", "feed", "milk", "latch",
	"bleed", "fever", "pain", "swelling", "headache", "dizzy",
	"mother", "mom", "womb", "uterus", "cramp",
	"vaccine", "immuni", "midwife", "doctor", "clinic", "health",
	"sleep", "cry", "crying", "weight", "jaundice", "umbilical", "cord",
	"depress", "anxious", "sad", "tired",
}

// Classify is a pure decision over a single utterance: farewell beats
// scope, so "goodbye" never reaches the LLM even though it is short.
func Classify(utterance string) Decision {
	u := normalize(utterance)
	if u == "" {
		return DecisionOutOfScope
	}

	for _, p := range farewellPhrases {
		if u == p || strings.HasSuffix(u, " "+p) || strings.HasPrefix(u, p+" ") {
			return DecisionFarewell
		}
	}

	for _, kw := range scopeKeywords {
		if strings.Contains(u, kw) {
			return DecisionInScope
		}
	}
	return DecisionOutOfScope
}

// BuildRequest converts the session history plus the new utterance into an
// LLM request. The new utterance must already be appended to the session by
// the caller; history is replayed in order so the model sees the whole call.
func BuildRequest(s *Session, maxTokens int) *LLMRequest {
	msgs := make([]Message, 0, len(s.Turns))
	for _, t := range s.Turns {
		role := "user"
		if t.Role == RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, Message{Role: role, Content: t.Text})
	}
	return &LLMRequest{
		System:    SystemPrompt,
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".!?,")
	return strings.Join(strings.Fields(s), " ")
}
