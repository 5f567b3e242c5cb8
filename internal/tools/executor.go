package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"minerva/internal/metrics"
	"minerva/pkg/logger"
)

// Executor invokes registered tools by name and folds every failure mode
// into a Result. Unknown names, validation violations and panicking tools
// all come back as failed Results, never as errors or panics.
type Executor struct {
	registry *Registry
	log      *logger.Logger
}

// NewExecutor creates a tool executor over the given registry.
func NewExecutor(registry *Registry, log *logger.Logger) *Executor {
	return &Executor{
		registry: registry,
		log:      log.With("component", "tool_executor"),
	}
}

// Execute looks up and runs a tool with the provided arguments.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) (result Result) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			e.log.Errorw("Tool panicked", "tool", name, "panic", rec)
			result = Fail(fmt.Sprintf("tool '%s' panicked: %v", name, rec), map[string]interface{}{"tool": name})
		}
		metrics.RecordToolExecution(name, time.Since(start), result.Success)
	}()

	tool, err := e.registry.Get(name)
	if err != nil {
		available := strings.Join(e.registry.List(), ", ")
		e.log.Warnw("Tool not found", "tool", name, "available", available)
		return Fail(fmt.Sprintf("tool '%s' not found. Available tools: %s", name, available),
			map[string]interface{}{"tool": name})
	}

	e.log.Debugw("Executing tool", "tool", name, "args", args)
	result = tool.Execute(ctx, args)

	if result.Success {
		e.log.Infow("Tool executed", "tool", name, "duration", time.Since(start))
	} else {
		e.log.Warnw("Tool failed", "tool", name, "error", result.Error)
	}

	return result
}

// Registry returns the underlying registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}
