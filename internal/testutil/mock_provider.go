// Package testutil provides shared test helpers and mocks for clawclub tests.
package testutil

import (
	"context"
	"sync"

	"github.com/clawclub/clawclub/internal/llm"
)

// MockProvider implements llm.Provider for tests without live API calls.
// When Content is empty, Generate returns "mock response from " + ProviderName.
// Set Err to simulate LLM errors.
type MockProvider struct {
	ProviderName string // provider identifier, e.g. "anthropic"
	Content      string // canned response; empty = "mock response from " + ProviderName
	Err          error  // if set, Generate returns this error

	mu       sync.Mutex
	requests []*llm.Request
}

// Name returns the provider identifier (implements llm.Provider).
func (m *MockProvider) Name() string { return m.ProviderName }

// Generate returns a canned response or the configured error, recording
// the request for assertions.
func (m *MockProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	content := m.Content
	if content == "" {
		content = "mock response from " + m.ProviderName
	}
	return &llm.Response{
		Content:      content,
		FinishReason: "stop",
		InputTokens:  10,
		OutputTokens: 20,
		Model:        req.Model,
	}, nil
}

// Requests returns a copy of every request Generate received.
func (m *MockProvider) Requests() []*llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// ScriptedProvider returns responses in sequence, one per Generate call,
// repeating the last one when the script runs out. Useful when the
// classifier and the executor share a provider and need different
// answers (e.g. profile text, then MATCH, then the work result).
type ScriptedProvider struct {
	ProviderName string
	Script       []string

	mu        sync.Mutex
	CallCount int
}

// Name returns the provider identifier (implements llm.Provider).
func (p *ScriptedProvider) Name() string { return p.ProviderName }

// Generate returns the next scripted response.
func (p *ScriptedProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	idx := p.CallCount
	p.CallCount++
	p.mu.Unlock()

	content := "scripted response"
	if len(p.Script) > 0 {
		if idx >= len(p.Script) {
			idx = len(p.Script) - 1
		}
		content = p.Script[idx]
	}
	return &llm.Response{
		Content:      content,
		FinishReason: "stop",
		InputTokens:  10,
		OutputTokens: 20,
		Model:        req.Model,
	}, nil
}
