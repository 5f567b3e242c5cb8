package tools

import (
	"context"
	"fmt"
)

// Tool represents a callable capability exposed to the agentic loop.
// Implementations declare a parameter schema; arguments are validated
// against it before execution.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Schema returns the tool's declared parameter schema.
	Schema() Schema
	// Execute performs the tool's action using validated arguments.
	Execute(ctx context.Context, args map[string]interface{}) Result
}

// Result is the uniform outcome of a tool execution. A failed tool call is
// data, never an error return: by the time a result reaches a caller, any
// execution failure has been folded into it.
type Result struct {
	Success  bool                   `json:"success"`
	Data     interface{}            `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// OK creates a successful result
func OK(data interface{}, metadata map[string]interface{}) Result {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return Result{Success: true, Data: data, Metadata: metadata}
}

// Fail creates a failed result from an error or message
func Fail(err interface{}, metadata map[string]interface{}) Result {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	var msg string
	switch v := err.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return Result{Success: false, Metadata: metadata, Error: msg}
}

// HandlerFunc is the function signature for tool handlers. Arguments arrive
// already validated against the schema, with defaults applied.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) Result

// Func is a schema-carrying Tool backed by a handler function.
type Func struct {
	schema  Schema
	handler HandlerFunc
}

// New creates a function-backed Tool with the given schema.
func New(schema Schema, handler HandlerFunc) *Func {
	return &Func{
		schema:  schema,
		handler: handler,
	}
}

// Name returns the tool identifier.
func (t *Func) Name() string { return t.schema.Name }

// Schema returns the declared parameter schema.
func (t *Func) Schema() Schema { return t.schema }

// Execute validates args against the schema and runs the handler.
// Validation failure becomes a failed Result carrying the violation.
func (t *Func) Execute(ctx context.Context, args map[string]interface{}) Result {
	if t.handler == nil {
		return Fail("tool handler is not defined", nil)
	}

	validated, err := t.schema.Validate(args)
	if err != nil {
		return Fail(err, map[string]interface{}{"validation_error": true})
	}

	return t.handler(ctx, validated)
}
