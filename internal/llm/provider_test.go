package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawclub/clawclub/internal/config"
)

func TestAnthropicGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]string{{"type": "text", "text": "a haiku"}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 12, "output_tokens": 9},
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider("sk-test")
	p.baseURL = server.URL

	resp, err := p.Generate(context.Background(), &Request{
		System:    "you are a poet",
		Prompt:    "write a haiku",
		MaxTokens: 400,
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, anthropicDefaultModel, gotReq.Model)
	assert.Equal(t, "you are a poet", gotReq.System)
	assert.Equal(t, 400, gotReq.MaxTokens)

	assert.Equal(t, "a haiku", resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestAnthropicGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewAnthropicProvider("sk-test")
	p.baseURL = server.URL

	_, err := p.Generate(context.Background(), &Request{Prompt: "hi", MaxTokens: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-oa", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{
				"message":       map[string]string{"role": "assistant", "content": "done"},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 2},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-oa")
	p.baseURL = server.URL

	resp, err := p.Generate(context.Background(), &Request{Prompt: "go", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, 5, resp.InputTokens)
}

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Response:        "local result",
			Done:            true,
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL)
	resp, err := p.Generate(context.Background(), &Request{Prompt: "hi", MaxTokens: 64, Temperature: 0.4})
	require.NoError(t, err)

	assert.False(t, gotReq.Stream)
	assert.EqualValues(t, 64, gotReq.Options["num_predict"])
	assert.Equal(t, "local result", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestResolve_PreferenceOrder(t *testing.T) {
	p, err := Resolve(&config.Config{AnthropicKey: "a", OpenAIKey: "b", OllamaBaseURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = Resolve(&config.Config{OpenAIKey: "b", OllamaBaseURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = Resolve(&config.Config{OllamaBaseURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = Resolve(&config.Config{})
	assert.ErrorIs(t, err, ErrNoProvider)
}
