package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds application-level configuration for the doula server.
// Transport, logging, tracing and profiling carry their own Config structs
// in their go-core packages; this one covers the Twilio and NIM credentials
// plus the conversation policy knobs.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioSMSFrom          string
	TwilioMessagingService string
	TwilioVoiceCallerID    string
	TwilioVoiceTwiMLURL    string

	NIMAPIKey      string
	NIMModel       string
	NIMBaseURL     string
	NIMTemperature float64
	NIMTopP        float64
	NIMMaxTokens   int

	LLMTimeoutSeconds int
	MaxReprompts      int
	SessionTTLMinutes int

	RedisAddr   string
	DatabaseURL string
	APIToken    string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID for SMS and voice")
	fs.StringVar(&c.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token")
	fs.StringVar(&c.TwilioSMSFrom, "twilio-sms-from", "", "default E.164 sender number for SMS")
	fs.StringVar(&c.TwilioMessagingService, "twilio-messaging-service", "", "Twilio messaging service SID (alternative to twilio-sms-from)")
	fs.StringVar(&c.TwilioVoiceCallerID, "twilio-voice-caller-id", "", "outbound caller id for voice calls (falls back to twilio-sms-from)")
	fs.StringVar(&c.TwilioVoiceTwiMLURL, "twilio-voice-twiml-url", "", "default TwiML URL for outbound voice calls")
	fs.StringVar(&c.NIMAPIKey, "nim-api-key", "", "API key for the NVIDIA NIM chat completion endpoint")
	fs.StringVar(&c.NIMModel, "nim-model", "meta/llama-3.1-70b-instruct", "NIM model identifier")
	fs.StringVar(&c.NIMBaseURL, "nim-base-url", "https://integrate.api.nvidia.com/v1", "base URL of the OpenAI-compatible NIM endpoint")
	fs.Float64Var(&c.NIMTemperature, "nim-temperature", 0.2, "sampling temperature for replies (0..2)")
	fs.Float64Var(&c.NIMTopP, "nim-top-p", 0.7, "nucleus sampling parameter (0..1)")
	fs.IntVar(&c.NIMMaxTokens, "nim-max-tokens", 0, "max completion tokens per reply (0 = provider default)")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 8, "per-turn LLM call timeout; must stay under Twilio's webhook deadline (1..30)")
	fs.IntVar(&c.MaxReprompts, "max-reprompts", 2, "silent/unintelligible turns tolerated before hanging up (0..5)")
	fs.IntVar(&c.SessionTTLMinutes, "session-ttl-minutes", 30, "idle minutes before a call session is evicted (1..1440)")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for session storage (empty = in-memory store)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for triage records (empty = in-memory store)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /notify and /api/v1 endpoints")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Twilio credentials are required for both webhook replies and the
	// notification gateway; a server without them is useless, fail early.
	if c.TwilioAccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.TwilioAuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}

	// SMS needs a sender identity of one kind or the other
	if c.TwilioSMSFrom == "" && c.TwilioMessagingService == "" {
		errs = append(errs, errors.New("one of TWILIO_SMS_FROM or TWILIO_MESSAGING_SERVICE is required"))
	}

	// NIM credentials are required for LLM access
	if c.NIMAPIKey == "" {
		errs = append(errs, errors.New("NIM_API_KEY is required"))
	}
	if c.NIMModel == "" {
		errs = append(errs, errors.New("NIM_MODEL is required"))
	}
	if c.NIMBaseURL == "" {
		errs = append(errs, errors.New("NIM_BASE_URL is required"))
	}
	if c.NIMTemperature < 0 || c.NIMTemperature > 2 {
		errs = append(errs, fmt.Errorf("invalid NIM_TEMPERATURE %g (must be 0..2)", c.NIMTemperature))
	}
	if c.NIMTopP <= 0 || c.NIMTopP > 1 {
		errs = append(errs, fmt.Errorf("invalid NIM_TOP_P %g (must be in (0..1])", c.NIMTopP))
	}
	if c.NIMMaxTokens < 0 {
		errs = append(errs, fmt.Errorf("invalid NIM_MAX_TOKENS %d (must be >= 0)", c.NIMMaxTokens))
	}

	// An unspecified LLM timeout is a defect: Twilio abandons webhooks after
	// a few seconds, so the call must be bounded well under that.
	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 30 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..30)", c.LLMTimeoutSeconds))
	}
	if c.MaxReprompts < 0 || c.MaxReprompts > 5 {
		errs = append(errs, fmt.Errorf("invalid MAX_REPROMPTS %d (must be 0..5)", c.MaxReprompts))
	}
	if c.SessionTTLMinutes <= 0 || c.SessionTTLMinutes > 1440 {
		errs = append(errs, fmt.Errorf("invalid SESSION_TTL_MINUTES %d (must be 1..1440)", c.SessionTTLMinutes))
	}

	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
