package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"minerva/internal/metrics"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama daemon. Tool calling runs through
// the shared ReAct loop, so any text model works without native function
// calling support.
type OllamaProvider struct {
	baseURL string
	model   string
	timeout time.Duration
	log     *logger.Logger
}

var _ ToolCallingProvider = (*OllamaProvider)(nil)

// NewOllamaProvider creates a new Ollama provider instance.
func NewOllamaProvider(baseURL, model string, timeout time.Duration, log *logger.Logger) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
		log:     log.With("provider", ProviderNameOllama),
	}
}

// Name returns provider name.
func (p *OllamaProvider) Name() string { return ProviderNameOllama.String() }

// Model returns the configured model identifier.
func (p *OllamaProvider) Model() string { return p.model }

// SupportsTools indicates tool calling support.
func (p *OllamaProvider) SupportsTools() bool { return true }

// Available checks whether the daemon responds.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Generate sends a completion request to the Ollama generate endpoint.
func (p *OllamaProvider) Generate(ctx context.Context, genReq GenerateRequest) (text string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordLLMCall(p.Name(), p.model, time.Since(start), err)
	}()

	ollamaReq := ollamaRequest{
		Model:  p.model,
		Prompt: genReq.Prompt,
		System: genReq.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: genReq.Temperature,
			NumPredict:  genReq.MaxTokens,
		},
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return "", errors.Wrap(err, "marshal ollama request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "send ollama request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read ollama response")
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return "", errors.Wrapf(errors.ErrExternal, "ollama API error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return "", errors.Wrapf(errors.ErrExternal, "ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return "", errors.Wrap(err, "unmarshal ollama response")
	}

	return ollamaResp.Response, nil
}

// GenerateWithTools runs the shared tool loop on top of Generate.
func (p *OllamaProvider) GenerateWithTools(ctx context.Context, req ToolRequest) (*ToolResponse, error) {
	return newToolLoop(p, p.log).run(ctx, req)
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"created_at"`
}
