// Package voiceapi handles the Twilio voice webhooks: each POST carries the
// latest speech transcription for a call, and the response body is the TwiML
// for what to do next.
package voiceapi

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/doula/internal/convo"
	"github.com/linnemanlabs/doula/internal/twiml"
)

// voicePath is the webhook path; Gather actions point back at it so the
// conversation loops through the same handler.
const voicePath = "/twilio/voice"

// minConfidence is the transcription confidence below which a turn is
// treated as unintelligible and handed to the re-prompt flow instead of
// the LLM.
const minConfidence = 0.4

// Turner is the conversation surface the webhook needs.
type Turner interface {
	HandleTurn(ctx context.Context, callID, utterance string) (*convo.Reply, error)
	EndCall(ctx context.Context, callID, status string) error
}

// API holds dependencies for the voice webhook handlers.
type API struct {
	logger log.Logger
	engine Turner
}

// New creates a new voice webhook API handler.
func New(logger log.Logger, engine Turner) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if engine == nil {
		panic(xerrors.New("conversation engine is required"))
	}
	return &API{
		logger: logger,
		engine: engine,
	}
}

// RegisterRoutes attaches the Twilio webhook endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post(voicePath, a.handleVoice)
	r.Post("/twilio/status", a.handleStatus)
}

// handleVoice processes one conversation turn. Twilio treats any non-2xx as
// a fatal application error and plays a generic failure message, so this
// handler answers 200 with spoken TwiML even when the engine fails.
func (a *API) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.logger.Error(r.Context(), err, "malformed voice webhook form")
		a.speakFailure(w, r)
		return
	}

	callID := r.PostFormValue("CallSid")
	utterance := r.PostFormValue("SpeechResult")

	// A low-confidence transcript is noise, not speech. Blanking it routes
	// the turn through the same re-prompt path as silence. A missing or
	// unparseable Confidence leaves the transcript alone.
	if raw := r.PostFormValue("Confidence"); raw != "" && utterance != "" {
		if conf, err := strconv.ParseFloat(raw, 64); err == nil && conf < minConfidence {
			a.logger.Info(r.Context(), "discarding low-confidence transcript",
				"call_id", callID, "confidence", conf)
			utterance = ""
		}
	}

	if callID == "" {
		a.logger.Warn(r.Context(), "voice webhook without CallSid")
		a.speakFailure(w, r)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("doula.call_id", callID))

	reply, err := a.engine.HandleTurn(r.Context(), callID, utterance)
	if err != nil {
		a.logger.Error(r.Context(), err, "turn failed", "call_id", callID)
		a.speakFailure(w, r)
		return
	}

	var doc *twiml.Response
	if reply.EndCall {
		doc = twiml.SayHangup(reply.Text)
	} else {
		doc = twiml.GatherSpeech(reply.Text, voicePath)
	}
	if err := twiml.Write(w, doc); err != nil {
		a.logger.Error(r.Context(), err, "write twiml", "call_id", callID)
	}
}

// handleStatus processes the call-status callback Twilio sends as the call
// progresses. Terminal statuses release the session.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.logger.Error(r.Context(), err, "malformed status callback form")
		w.WriteHeader(http.StatusOK)
		return
	}

	callID := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")
	if callID == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := a.engine.EndCall(r.Context(), callID, status); err != nil {
		a.logger.Error(r.Context(), err, "status callback failed", "call_id", callID, "status", status)
	}
	w.WriteHeader(http.StatusOK)
}

// speakFailure keeps the call alive with an apology and another listen
// instead of letting Twilio play its own error message.
func (a *API) speakFailure(w http.ResponseWriter, r *http.Request) {
	doc := twiml.GatherSpeech(convo.LLMFailureText, voicePath)
	if err := twiml.Write(w, doc); err != nil {
		a.logger.Error(r.Context(), err, "write failure twiml")
	}
}
