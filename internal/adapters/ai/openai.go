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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider talks to the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	limiter RateLimiter
	log     *logger.Logger
}

var _ ToolCallingProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider instance.
func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration, limiter RateLimiter, log *logger.Logger) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}

	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		timeout: timeout,
		limiter: limiter,
		log:     log.With("provider", ProviderNameOpenAI),
	}
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string { return ProviderNameOpenAI.String() }

// Model returns the configured model identifier.
func (p *OpenAIProvider) Model() string { return p.model }

// SupportsTools indicates tool calling support.
func (p *OpenAIProvider) SupportsTools() bool { return true }

// Available checks whether the API accepts the configured key.
func (p *OpenAIProvider) Available(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Generate sends a chat completion request to the OpenAI API.
func (p *OpenAIProvider) Generate(ctx context.Context, genReq GenerateRequest) (text string, err error) {
	if p.apiKey == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "openai API key not configured")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", &RateLimitError{
			Provider: ProviderNameOpenAI,
			Limit:    p.limiter.Limit(),
			Err:      err,
		}
	}

	start := time.Now()
	defer func() {
		metrics.RecordLLMCall(p.Name(), p.model, time.Since(start), err)
	}()

	openAIReq := openAIRequest{
		Model:       p.model,
		Temperature: genReq.Temperature,
		MaxTokens:   genReq.MaxTokens,
	}
	if openAIReq.MaxTokens == 0 {
		openAIReq.MaxTokens = 4096
	}

	if genReq.SystemPrompt != "" {
		openAIReq.Messages = append(openAIReq.Messages, openAIMessage{
			Role:    "system",
			Content: genReq.SystemPrompt,
		})
	}
	openAIReq.Messages = append(openAIReq.Messages, openAIMessage{
		Role:    "user",
		Content: genReq.Prompt,
	})

	body, err := json.Marshal(openAIReq)
	if err != nil {
		return "", errors.Wrap(err, "marshal openai request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "create HTTP request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "send openai request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read openai response")
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", errors.Wrapf(errors.ErrExternal, "openai API error (%d): %s - %s",
				resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return "", errors.Wrapf(errors.ErrExternal, "openai API error (%d): %s",
			resp.StatusCode, string(respBody))
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", errors.Wrap(err, "unmarshal openai response")
	}
	if len(openAIResp.Choices) == 0 {
		return "", errors.Wrap(errors.ErrExternal, "openai returned no choices")
	}

	if openAIResp.Usage.TotalTokens > 0 {
		metrics.LLMTokens.WithLabelValues(p.Name(), p.model, "input").Add(float64(openAIResp.Usage.PromptTokens))
		metrics.LLMTokens.WithLabelValues(p.Name(), p.model, "output").Add(float64(openAIResp.Usage.CompletionTokens))
	}

	return openAIResp.Choices[0].Message.Content, nil
}

// GenerateWithTools runs the shared tool loop on top of Generate.
func (p *OpenAIProvider) GenerateWithTools(ctx context.Context, req ToolRequest) (*ToolResponse, error) {
	return newToolLoop(p, p.log).run(ctx, req)
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
