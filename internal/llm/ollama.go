package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	clubotel "github.com/clawclub/clawclub/internal/otel"
)

const ollamaDefaultModel = "llama3.2"

// OllamaProvider implements Provider for a local Ollama instance. It is
// the zero-credential fallback so an agent works out of the box.
type OllamaProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewOllamaProvider creates an Ollama provider against the given base URL.
func NewOllamaProvider(baseURL string) *OllamaProvider {
	return &OllamaProvider{
		httpClient: &http.Client{},
		baseURL:    baseURL,
	}
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate sends a completion request to Ollama.
func (p *OllamaProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = ollamaDefaultModel
	}

	ctx, span := tracer.Start(ctx, "gen_ai.generate",
		trace.WithAttributes(
			clubotel.GenAISystem.String("ollama"),
			clubotel.GenAIRequestModel.String(model),
			clubotel.GenAIRequestMaxTokens.Int(req.MaxTokens),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	options := map[string]interface{}{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}

	body, err := json.Marshal(ollamaRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ollama api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}

	span.SetAttributes(
		clubotel.GenAIUsageInputTokens.Int(apiResp.PromptEvalCount),
		clubotel.GenAIUsageOutputTokens.Int(apiResp.EvalCount),
	)

	finish := "stop"
	if !apiResp.Done {
		finish = "length"
	}
	return &Response{
		Content:      apiResp.Response,
		FinishReason: finish,
		InputTokens:  apiResp.PromptEvalCount,
		OutputTokens: apiResp.EvalCount,
		Model:        model,
	}, nil
}
