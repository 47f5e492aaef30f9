// Package llm is the text-completion collaborator: battle entries and
// task results are generated here, under the per-kind output ceilings
// the arbiter passes in.
package llm

import (
	"context"
	"errors"
	"time"
)

// TimeoutLLMCall bounds every provider call.
const TimeoutLLMCall = 60 * time.Second

// ErrNoProvider is returned when no provider is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Provider is the interface all completion providers implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic", "ollama").
	Name() string
	// Generate sends a completion request and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request is a single completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is a completion result.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}
