// Package twilio implements notify.Sender against the Twilio REST API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linnemanlabs/doula/internal/notify"
)

const (
	defaultBaseURL = "https://api.twilio.com"
	apiVersion     = "2010-04-01"
	httpTimeout    = 15 * time.Second
)

// Twilio error codes for unusable destination numbers.
var invalidDestinationCodes = map[int]bool{
	21211: true, // invalid 'To' phone number
	21214: true, // 'To' phone number cannot be reached
	21217: true, // phone number not valid
	21614: true, // 'To' number is not a valid mobile number
}

// Defaults are the configured sender identities used when a request does not
// carry its own.
type Defaults struct {
	SMSFrom          string
	MessagingService string
	VoiceCallerID    string
	VoiceTwiMLURL    string
}

// Client issues SMS and voice-call requests against the Twilio REST API.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	defaults   Defaults
	client     *http.Client
}

// New creates a Twilio client. baseURL overrides the production API host for
// tests; pass "" for the real thing.
func New(accountSID, authToken, baseURL string, defaults Defaults) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		defaults:   defaults,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// SendSMS sends a text message and returns the Twilio message SID.
func (c *Client) SendSMS(ctx context.Context, req notify.SMSRequest) (string, error) {
	if err := notify.ValidateDestination(req.To); err != nil {
		return "", err
	}

	from := req.From
	service := req.MessagingService
	if from == "" && service == "" {
		from = c.defaults.SMSFrom
		service = c.defaults.MessagingService
	}
	if from == "" && service == "" {
		return "", &notify.Error{Kind: notify.KindConfig,
			Message: "no from number or messaging service configured for SMS"}
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("Body", req.Body)
	if service != "" {
		form.Set("MessagingServiceSid", service)
	} else {
		form.Set("From", from)
	}

	return c.create(ctx, "Messages", form)
}

// StartCall initiates an outbound voice call and returns the call SID.
func (c *Client) StartCall(ctx context.Context, req notify.CallRequest) (string, error) {
	if err := notify.ValidateDestination(req.To); err != nil {
		return "", err
	}

	from := req.From
	if from == "" {
		from = c.defaults.VoiceCallerID
	}
	if from == "" {
		from = c.defaults.SMSFrom
	}
	if from == "" {
		return "", &notify.Error{Kind: notify.KindConfig,
			Message: "no caller id configured for outbound calls"}
	}

	twimlURL := req.TwiMLURL
	if twimlURL == "" && req.TwiML == "" {
		twimlURL = c.defaults.VoiceTwiMLURL
	}
	if twimlURL == "" && req.TwiML == "" {
		return "", &notify.Error{Kind: notify.KindConfig,
			Message: "provide a TwiML URL or inline TwiML for voice calls"}
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", from)
	if req.TwiML != "" {
		form.Set("Twiml", req.TwiML)
	} else {
		form.Set("Url", twimlURL)
	}

	return c.create(ctx, "Calls", form)
}

// create posts a form to the account-scoped resource and extracts the SID.
func (c *Client) create(ctx context.Context, resource string, form url.Values) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/%s.json", c.baseURL, apiVersion, c.accountSID, resource)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &notify.Error{Kind: notify.KindUnavailable,
			Message: fmt.Sprintf("post %s: %v", resource, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", &notify.Error{Kind: notify.KindUnavailable,
			Message: fmt.Sprintf("read %s response: %v", resource, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classify(resp.StatusCode, body)
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.SID == "" {
		return "", &notify.Error{Kind: notify.KindUnavailable,
			Message: fmt.Sprintf("unexpected %s response: %.200s", resource, string(body))}
	}
	return out.SID, nil
}

// classify maps a Twilio error response onto the notify taxonomy.
func classify(status int, body []byte) error {
	var te struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &te)
	if te.Message == "" {
		te.Message = fmt.Sprintf("twilio returned %d", status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &notify.Error{Kind: notify.KindAuth, Code: te.Code, Message: te.Message}
	case invalidDestinationCodes[te.Code]:
		return &notify.Error{Kind: notify.KindInvalidDestination, Code: te.Code, Message: te.Message}
	case status == http.StatusBadRequest:
		// A 400 whose code is not about the destination is some other
		// request problem and must not be reported as a bad number.
		return &notify.Error{Kind: notify.KindRejected, Code: te.Code, Message: te.Message}
	default:
		return &notify.Error{Kind: notify.KindUnavailable, Code: te.Code, Message: te.Message}
	}
}
