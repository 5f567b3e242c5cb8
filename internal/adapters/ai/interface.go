package ai

import "context"

// Provider defines the contract each LLM backend must satisfy.
type Provider interface {
	Name() string

	// Model returns the configured model identifier.
	Model() string

	// Available reports whether the backend can currently serve requests.
	Available(ctx context.Context) bool

	// SupportsTools indicates whether the provider can drive the tool loop.
	SupportsTools() bool

	// Generate produces a plain text completion.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ToolCallingProvider extends Provider with a bounded tool-calling loop.
// Providers that do not implement it cannot serve agentic workflows; callers
// detect support with a type assertion before handing over tools.
type ToolCallingProvider interface {
	Provider

	// GenerateWithTools runs the iterative generate, parse tool calls,
	// execute, feed results back cycle and returns the final analysis with
	// the full call trace.
	GenerateWithTools(ctx context.Context, req ToolRequest) (*ToolResponse, error)
}
