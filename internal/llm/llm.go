// Package llm is the language-model layer used by the Sensei assistant.
// Providers return JSON; callers describe the shape they want with a Schema
// and get it back validated.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider generates a response for a request.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider is configured for.
	ModelID() string
}

// Named is implemented by providers that report a provider name distinct
// from their model.
type Named interface {
	ProviderName() string
}

// Request is one generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for JSON matching it. Without a
	// schema the response is plain text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Role is who sent a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Schema is a named JSON Schema.
type Schema struct {
	// Name is kebab-case; providers use it as the tool or format name.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a provider's answer.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // "end" or "max_tokens"
}

// Decode unmarshals the response content into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// Usage is the token accounting of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type purposeKey struct{}

// WithPurpose labels calls made with ctx for the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// providerName reports p's provider name, falling back to its model.
func providerName(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.ProviderName()
	}
	return p.ModelID()
}
