package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hackdojo/hackdojo/internal/store"
)

var answerSchema = &Schema{
	Name: "test-answer",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"response": map[string]any{"type": "string"}},
		"required":             []string{"response"},
		"additionalProperties": false,
	},
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockJSON(map[string]string{"response": "ok"}),
	)
	resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{Schema: answerSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mock.CallCount(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	var out struct{ Response string }
	if err := resp.Decode(&out); err != nil || out.Response != "ok" {
		t.Fatalf("decode = %q, %v", out.Response, err)
	}
}

func TestRetryGivesUp(t *testing.T) {
	tests := []struct {
		name  string
		errs  []error
		calls int
	}{
		{"exhausted", []error{&ErrProviderUnavailable{}, &ErrProviderUnavailable{}, &ErrProviderUnavailable{}}, 3},
		{"max tokens not retried", []error{&ErrMaxTokensExceeded{}}, 1},
		{"cancelled not retried", []error{context.Canceled}, 1},
		{"invalid retried once", []error{
			&ErrInvalidResponse{Err: errors.New("bad")},
			&ErrInvalidResponse{Err: errors.New("bad")},
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider()
			for _, e := range tt.errs {
				mock.Enqueue(MockResponse{Err: e})
			}
			_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
			if err == nil {
				t.Fatal("expected error")
			}
			if mock.CallCount() != tt.calls {
				t.Fatalf("calls = %d, want %d", mock.CallCount(), tt.calls)
			}
		})
	}
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: time.Hour, Err: errors.New("slow down")}})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := WithRetry(mock, fastRetry()).Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestLoggingRecordsEvents(t *testing.T) {
	st, err := store.Open(fmt.Sprintf("file:llm_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mock := NewMockProvider(
		MockJSON(map[string]string{"response": "Use a for loop."}),
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, st.EventRepo())
	ctx := WithPurpose(context.Background(), "sensei")

	if _, err := p.Generate(ctx, Request{System: "Be kind.", Messages: []Message{{Role: RoleUser, Content: "loops?"}}, Schema: answerSchema}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("second call should fail")
	}

	events, err := st.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	var ok, failed *store.LLMRequestEvent
	for i := range events {
		if events[i].Success {
			ok = &events[i]
		} else {
			failed = &events[i]
		}
	}
	if ok == nil || failed == nil {
		t.Fatalf("want one success and one failure, got %+v", events)
	}
	if ok.Purpose != "sensei" || ok.Provider != ProviderMock || ok.InputTokens != 10 {
		t.Errorf("unexpected success event: %+v", ok.LLMRequestEventData)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nBe kind.") || !strings.Contains(ok.RequestBody, "[schema test-answer]") {
		t.Errorf("request body = %q", ok.RequestBody)
	}
	if !strings.Contains(failed.ErrorMessage, "unavailable") {
		t.Errorf("error message = %q", failed.ErrorMessage)
	}
}

func TestPurposeDefault(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Fatalf("purpose = %q", got)
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", `{"response":"hi"}`, false},
		{"missing field", `{}`, true},
		{"wrong type", `{"response":3}`, true},
		{"extra field", `{"response":"hi","x":1}`, true},
		{"not json", `hello`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(answerSchema, json.RawMessage(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var inv *ErrInvalidResponse
			if err != nil && !errors.As(err, &inv) {
				t.Fatalf("want ErrInvalidResponse, got %T", err)
			}
		})
	}
	if err := validateResponse(nil, json.RawMessage(`anything`)); err != nil {
		t.Fatalf("nil schema: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HACKDOJO_LLM_PROVIDER", "OpenAI")
	t.Setenv("HACKDOJO_LLM_API_KEY", "sk-test")
	t.Setenv("HACKDOJO_LLM_TIMEOUT", "3s")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI || cfg.APIKey != "sk-test" || cfg.Timeout != 3*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.model() != "gpt-4o-mini" {
		t.Fatalf("default model = %q", cfg.model())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range standardKeys {
		t.Setenv(k.env, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected nothing discovered")
	}
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != ProviderGemini || cfg.APIKey != "g-key" {
		t.Fatalf("cfg = %+v ok = %v", cfg, ok)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Provider: ProviderMock}, false},
		{Config{Provider: ProviderAnthropic}, true},
		{Config{Provider: ProviderAnthropic, APIKey: "k"}, false},
		{Config{}, true},
		{Config{Provider: "llama"}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%+v: err = %v", tt.cfg, err)
		}
	}
}

func TestNewProviderMock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock, Retry: fastRetry()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("model = %q", p.ModelID())
	}
}

func TestNewOpenRouterDefaults(t *testing.T) {
	p, err := NewOpenRouterProvider(Config{APIKey: "sk-or"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProviderName() != ProviderOpenRouter || p.ModelID() != "google/gemini-2.0-flash-001" {
		t.Fatalf("provider %q model %q", p.ProviderName(), p.ModelID())
	}
	if _, err := NewOpenRouterProvider(Config{}); err == nil {
		t.Fatal("expected error without key")
	}
}

func openAIStub(t *testing.T, status int, body any) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	oc := openai.DefaultConfig("test-key")
	oc.BaseURL = srv.URL + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(oc), model: "gpt-4o-mini", name: ProviderOpenAI}
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	p := openAIStub(t, http.StatusOK, chatCompletion(`{"response":"Try range()."}`, "stop"))
	resp, err := p.Generate(context.Background(), Request{Schema: answerSchema, Messages: []Message{{Role: RoleUser, Content: "?"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 20 || resp.StopReason != "end" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestOpenAIPlainText(t *testing.T) {
	p := openAIStub(t, http.StatusOK, chatCompletion("just text", "stop"))
	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var s string
	if err := resp.Decode(&s); err != nil || s != "just text" {
		t.Fatalf("content = %s, %v", resp.Content, err)
	}
}

func TestOpenAIErrors(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		p := openAIStub(t, http.StatusTooManyRequests, map[string]any{"error": map[string]any{"message": "slow", "type": "rate_limit"}})
		_, err := p.Generate(context.Background(), Request{})
		var rl *ErrRateLimit
		if !errors.As(err, &rl) {
			t.Fatalf("want ErrRateLimit, got %v", err)
		}
	})
	t.Run("truncated structured output", func(t *testing.T) {
		p := openAIStub(t, http.StatusOK, chatCompletion(`{"response":"Try`, "length"))
		_, err := p.Generate(context.Background(), Request{Schema: answerSchema})
		var mt *ErrMaxTokensExceeded
		if !errors.As(err, &mt) {
			t.Fatalf("want ErrMaxTokensExceeded, got %v", err)
		}
	})
	t.Run("schema mismatch", func(t *testing.T) {
		p := openAIStub(t, http.StatusOK, chatCompletion(`{"answer":"x"}`, "stop"))
		_, err := p.Generate(context.Background(), Request{Schema: answerSchema})
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Fatalf("want ErrInvalidResponse, got %v", err)
		}
	})
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{"type": "string", "description": "answer"},
			"tags":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"response"},
	})
	if s.Properties["response"].Description != "answer" {
		t.Fatalf("description lost: %+v", s.Properties["response"])
	}
	if s.Properties["tags"].Items == nil || len(s.Required) != 1 || s.Required[0] != "response" {
		t.Fatalf("schema = %+v", s)
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing")
	}
	if got := c.Cost(1_000_000, 1_000_000); got < 0.74 || got > 0.76 {
		t.Fatalf("cost = %v", got)
	}
	if LookupCost("nope") != nil {
		t.Fatal("unexpected pricing")
	}
}
