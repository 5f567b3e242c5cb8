package ai

import "minerva/internal/tools"

// GenerateRequest represents a plain text completion request.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ToolRequest represents a tool-augmented generation request. Tools are
// executable, not just schemas: the loop invokes them as the model asks.
type ToolRequest struct {
	Prompt        string
	SystemPrompt  string
	Tools         []tools.Tool
	Temperature   float64
	MaxTokens     int
	MaxIterations int
}

// ToolCallRecord is one executed tool call in the loop trace.
type ToolCallRecord struct {
	Tool     string                 `json:"tool"`
	Args     map[string]interface{} `json:"args"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Response interface{}            `json:"response,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToolResponse is the outcome of a tool-augmented generation.
type ToolResponse struct {
	// Text is the model's final free-form answer.
	Text string

	// ToolCalls lists every executed call in order.
	ToolCalls []ToolCallRecord

	// Iterations counts LLM turns taken, including the final answering turn.
	Iterations int
}

// ToolsUsed returns the distinct tool names in first-use order.
func (r *ToolResponse) ToolsUsed() []string {
	seen := make(map[string]bool, len(r.ToolCalls))
	used := make([]string, 0, len(r.ToolCalls))
	for _, call := range r.ToolCalls {
		if !seen[call.Tool] {
			seen[call.Tool] = true
			used = append(used, call.Tool)
		}
	}
	return used
}
