package nim

import (
	"testing"

	"github.com/linnemanlabs/doula/internal/convo"
)

func TestToSDKMessages_SystemFirst(t *testing.T) {
	t.Parallel()

	req := &convo.LLMRequest{
		System: "be helpful",
		Messages: []convo.Message{
			{Role: "user", Content: "hello"},
		},
	}

	result := toSDKMessages(req)

	if len(result) != 2 {
		t.Fatalf("len = %d, want 2", len(result))
	}
	if result[0].OfSystem == nil {
		t.Fatal("expected first message to be the system instruction")
	}
	if result[1].OfUser == nil {
		t.Fatal("expected second message to be from the user")
	}
}

func TestToSDKMessages_NoSystem(t *testing.T) {
	t.Parallel()

	req := &convo.LLMRequest{
		Messages: []convo.Message{
			{Role: "user", Content: "hi"},
		},
	}

	result := toSDKMessages(req)

	if len(result) != 1 {
		t.Fatalf("len = %d, want 1", len(result))
	}
	if result[0].OfUser == nil {
		t.Fatal("expected user message")
	}
}

func TestToSDKMessages_RoleMapping(t *testing.T) {
	t.Parallel()

	req := &convo.LLMRequest{
		System: "s",
		Messages: []convo.Message{
			{Role: "user", Content: "is my fever dangerous"},
			{Role: "assistant", Content: "see a health worker if it persists"},
			{Role: "user", Content: "thank you"},
		},
	}

	result := toSDKMessages(req)

	if len(result) != 4 {
		t.Fatalf("len = %d, want 4", len(result))
	}
	if result[1].OfUser == nil {
		t.Error("message 1 should be user")
	}
	if result[2].OfAssistant == nil {
		t.Error("message 2 should be assistant")
	}
	if result[3].OfUser == nil {
		t.Error("message 3 should be user")
	}
}

func TestToSDKMessages_UnknownRoleDefaultsToUser(t *testing.T) {
	t.Parallel()

	req := &convo.LLMRequest{
		Messages: []convo.Message{
			{Role: "caller", Content: "hello"},
		},
	}

	result := toSDKMessages(req)

	if result[0].OfUser == nil {
		t.Fatal("unknown role should map to user")
	}
}

func TestBuildParams_ZeroTemperatureIsSent(t *testing.T) {
	t.Parallel()

	c := New(Config{
		APIKey:      "nvapi-test",
		Model:       "meta/llama-3.1-70b-instruct",
		Temperature: 0,
		TopP:        0.7,
	})

	params := c.buildParams(&convo.LLMRequest{
		Messages: []convo.Message{{Role: "user", Content: "hello"}},
	})

	if !params.Temperature.Valid() {
		t.Fatal("temperature 0 was dropped from the request")
	}
	if params.Temperature.Value != 0 {
		t.Fatalf("temperature = %g, want 0", params.Temperature.Value)
	}
	if !params.TopP.Valid() || params.TopP.Value != 0.7 {
		t.Fatalf("top_p = %+v, want 0.7", params.TopP)
	}
}

func TestBuildParams_UnsetTopPFallsToProviderDefault(t *testing.T) {
	t.Parallel()

	c := New(Config{APIKey: "nvapi-test", Model: "m"})

	params := c.buildParams(&convo.LLMRequest{
		Messages:  []convo.Message{{Role: "user", Content: "hello"}},
		MaxTokens: 128,
	})

	if params.TopP.Valid() {
		t.Fatal("zero top_p should be left to the provider default")
	}
	if !params.MaxTokens.Valid() || params.MaxTokens.Value != 128 {
		t.Fatalf("max_tokens = %+v, want 128", params.MaxTokens)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New(Config{
		APIKey:      "nvapi-test",
		Model:       "meta/llama-3.1-70b-instruct",
		BaseURL:     "https://integrate.api.nvidia.com/v1",
		Temperature: 0.2,
		TopP:        0.7,
	})
	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.model != "meta/llama-3.1-70b-instruct" {
		t.Errorf("model = %q", c.model)
	}
	if c.temperature != 0.2 {
		t.Errorf("temperature = %g, want 0.2", c.temperature)
	}
}
