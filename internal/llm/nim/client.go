// Package nim implements convo.Provider against an NVIDIA NIM endpoint.
// NIM speaks the OpenAI chat-completions protocol, so the client is a thin
// wrapper over the OpenAI SDK pointed at the NIM base URL.
package nim

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/linnemanlabs/doula/internal/convo"
)

// Config carries the NIM connection and sampling settings.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	TopP        float64
}

// Client implements the convo.Provider interface for NIM models.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	topP        float64
}

// New creates a NIM client. BaseURL must point at an OpenAI-compatible
// endpoint, e.g. https://integrate.api.nvidia.com/v1.
func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}
}

// Send submits the conversation and returns the model's reply text.
func (c *Client) Send(ctx context.Context, req *convo.LLMRequest) (*convo.LLMResponse, error) {
	params := c.buildParams(req)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("nim chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("nim chat completion: no choices in response")
	}

	return &convo.LLMResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: convo.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// buildParams assembles the completion request. Temperature is always sent:
// 0 is a valid greedy-decoding setting, not an unset marker. TopP has no
// meaningful zero, so 0 means unset and falls back to the provider default.
func (c *Client) buildParams(req *convo.LLMRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toSDKMessages(req),
		Temperature: openai.Float(c.temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if c.topP > 0 {
		params.TopP = openai.Float(c.topP)
	}
	return params
}

// toSDKMessages prepends the system instruction and maps conversation turns
// onto SDK message params.
func toSDKMessages(req *convo.LLMRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}
