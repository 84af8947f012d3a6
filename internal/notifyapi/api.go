// Package notifyapi exposes the thin SMS/voice wrapper endpoints the
// operator dashboard calls.
package notifyapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/doula/internal/notify"
)

// API holds dependencies for the notification HTTP handlers.
type API struct {
	logger log.Logger
	sender notify.Sender
}

// New creates a new notification API handler.
func New(logger log.Logger, sender notify.Sender) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if sender == nil {
		panic(xerrors.New("notification sender is required"))
	}
	return &API{
		logger: logger,
		sender: sender,
	}
}

// RegisterRoutes attaches the notification endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/notify", func(r chi.Router) {
		r.Post("/sms", a.handleSendSMS)
		r.Post("/voice", a.handleStartCall)
	})
}

func (a *API) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	var req notify.SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_payload", "invalid JSON body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "malformed_payload", "message body is required")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("doula.notify.to", req.To))

	sid, err := a.sender.SendSMS(r.Context(), req)
	if err != nil {
		a.writeSendError(w, r, "sms", err)
		return
	}

	a.logger.Info(r.Context(), "sms queued", "sid", sid, "to", req.To)
	writeSID(w, sid)
}

func (a *API) handleStartCall(w http.ResponseWriter, r *http.Request) {
	var req notify.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_payload", "invalid JSON body")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("doula.notify.to", req.To))

	sid, err := a.sender.StartCall(r.Context(), req)
	if err != nil {
		a.writeSendError(w, r, "voice", err)
		return
	}

	a.logger.Info(r.Context(), "voice call queued", "sid", sid, "to", req.To)
	writeSID(w, sid)
}

// writeSendError maps the notify error taxonomy onto HTTP statuses so the
// dashboard can render an actionable message.
func (a *API) writeSendError(w http.ResponseWriter, r *http.Request, channel string, err error) {
	kind := notify.KindOf(err)
	a.logger.Error(r.Context(), err, "notification failed", "channel", channel, "kind", string(kind))

	status := http.StatusBadGateway
	switch kind {
	case notify.KindInvalidDestination:
		status = http.StatusBadRequest
	case notify.KindAuth:
		status = http.StatusUnauthorized
	case notify.KindRejected:
		status = http.StatusBadRequest
	case notify.KindConfig:
		status = http.StatusBadRequest
	case notify.KindUnavailable:
		status = http.StatusBadGateway
	}
	writeError(w, status, string(kind), err.Error())
}

func writeSID(w http.ResponseWriter, sid string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"sid": sid})
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
