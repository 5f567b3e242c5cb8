package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"minerva/internal/adapters/ai"
	"minerva/internal/adapters/config"
	"minerva/internal/cache"
	"minerva/internal/domain/research"
	"minerva/internal/providers"
	"minerva/internal/tools"
	"minerva/internal/tools/fundamentals"
	"minerva/internal/tools/market"
	"minerva/internal/tools/regime"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
	"minerva/pkg/templates"
)

const agenticPromptID = "research/agentic"

// AgenticExecutor answers a free-form question about a stock by handing the
// LLM a tool belt built from the configured data providers and letting it
// fetch what it needs. Provider routing is fixed at construction through the
// selector; the tool set itself is assembled fresh for every execution.
type AgenticExecutor struct {
	provider      ai.Provider
	selector      *providers.Selector
	cache         *cache.Manager
	templates     *templates.Registry
	temperature   float64
	maxIterations int
	log           *logger.Logger
}

// NewAgentic constructs the agentic workflow executor. Provider, selector
// and cache may all be nil; the corresponding preconditions then fail inside
// Execute rather than at wiring time.
func NewAgentic(cfg config.WorkflowConfig, provider ai.Provider, selector *providers.Selector, manager *cache.Manager, reg *templates.Registry, log *logger.Logger) *AgenticExecutor {
	if reg == nil {
		reg = templates.Get()
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}

	return &AgenticExecutor{
		provider:      provider,
		selector:      selector,
		cache:         manager,
		templates:     reg,
		temperature:   temperature,
		maxIterations: maxIterations,
		log:           log.With("workflow", "agentic"),
	}
}

// WorkflowType identifies this executor during selection.
func (e *AgenticExecutor) WorkflowType() string { return "agentic" }

// Validate accepts any research with a symbol and a known timeframe. The
// runtime preconditions (LLM wired, tools available, question present) are
// deliberately not checked here: they must surface as failure payloads
// inside the result envelope, not as a selection miss.
func (e *AgenticExecutor) Validate(res *research.Research) bool {
	return strings.TrimSpace(res.StockSymbol) != "" && res.Timeframe.Valid()
}

// Execute checks the preconditions in order, builds the prompt pair and
// delegates to the provider's tool loop. Precondition violations are
// expected states and come back as failed payloads; only infrastructure
// breakage (prompt rendering, the LLM call itself) returns an error.
func (e *AgenticExecutor) Execute(ctx context.Context, res *research.Research, wfCtx Context) (map[string]interface{}, error) {
	symbol := strings.ToUpper(res.StockSymbol)

	if e.provider == nil {
		e.log.Warnw("Agentic workflow executed without LLM provider")
		return failurePayload("LLM provider not configured", "An LLM provider is required for agentic workflows"), nil
	}

	toolProvider, ok := e.provider.(ai.ToolCallingProvider)
	if !ok || !e.provider.SupportsTools() {
		e.log.Warnw("LLM provider does not support tools", "provider", e.provider.Name())
		return failurePayload("LLM provider does not support tools",
			fmt.Sprintf("Provider %s does not support tool calling", e.provider.Name())), nil
	}

	toolset := e.buildTools()
	if len(toolset) == 0 {
		e.log.Warnw("No tools available for agentic workflow")
		return failurePayload("No data providers configured", "At least one data provider is required for agentic workflows"), nil
	}

	question := strings.TrimSpace(wfCtx.Question())
	if question == "" {
		e.log.Warnw("Agentic workflow executed without question", "symbol", symbol)
		return failurePayload("Question is required",
			fmt.Sprintf("A question is required for agentic workflows. What is your question about %s?", symbol)), nil
	}

	question = enrichQuestion(question, symbol)

	systemPrompt, userPrompt, err := e.buildPrompts(question, symbol, toolset, wfCtx.Literacy())
	if err != nil {
		return nil, err
	}

	e.log.Infow("Executing agentic workflow with tools",
		"symbol", symbol, "tool_count", len(toolset), "provider", e.provider.Name())

	resp, err := toolProvider.GenerateWithTools(ctx, ai.ToolRequest{
		Prompt:        userPrompt,
		SystemPrompt:  systemPrompt,
		Tools:         toolset,
		Temperature:   e.temperature,
		MaxIterations: e.maxIterations,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "agentic generation for %s", symbol)
	}

	e.log.Infow("Agentic workflow completed",
		"symbol", symbol, "iterations", resp.Iterations, "tool_calls", len(resp.ToolCalls))

	return map[string]interface{}{
		"analysis":     resp.Text,
		"tool_calls":   resp.ToolCalls,
		"iterations":   resp.Iterations,
		"llm_provider": e.provider.Name(),
		"llm_model":    e.provider.Model(),
		"tools_used":   resp.ToolsUsed(),
	}, nil
}

// buildTools assembles the tool belt from whichever providers the selector
// carries. Filing tools route through the selector's filings override.
func (e *AgenticExecutor) buildTools() []tools.Tool {
	if e.selector == nil {
		return nil
	}

	var toolset []tools.Tool
	if m := e.selector.Market(); m != nil {
		toolset = append(toolset, market.Tools(m, e.cache, e.log)...)
		toolset = append(toolset, regime.Tools(m, e.log)...)
	}
	if e.selector.Fundamentals() != nil {
		toolset = append(toolset, fundamentals.Tools(e.selector, e.cache, e.log)...)
	}

	return toolset
}

func (e *AgenticExecutor) buildPrompts(question, symbol string, toolset []tools.Tool, literacy string) (string, string, error) {
	description, examples := describeTools(toolset, symbol)

	data := map[string]interface{}{
		"Question":          question,
		"ToolsDescription":  description,
		"ToolExamples":      examples,
		"FinancialLiteracy": literacy,
	}

	systemPrompt, userPrompt, err := e.templates.Pair(agenticPromptID, data)
	if err != nil {
		return "", "", errors.Wrap(err, "render agentic prompts")
	}

	return systemPrompt, userPrompt, nil
}

// enrichQuestion prefixes the symbol so tool calls pick it up, unless the
// question already names it or the research is market-wide.
func enrichQuestion(question, symbol string) string {
	if symbol == "MARKET" || strings.Contains(strings.ToUpper(question), symbol) {
		return question
	}
	return fmt.Sprintf("About %s: %s", symbol, question)
}

// describeTools renders the tool catalog and one example call per tool for
// prompt injection. The example JSON uses sorted keys, so prompts are
// deterministic for a given tool set.
func describeTools(toolset []tools.Tool, symbol string) (description, examples string) {
	var descs, calls []string

	for _, t := range toolset {
		schema := t.Schema()

		lines := []string{fmt.Sprintf("  - %s: %s", schema.Name, schema.Description), "    Parameters:"}
		for _, p := range schema.Parameters {
			info := fmt.Sprintf("%s (%s)", p.Name, p.Type)
			if p.Description != "" {
				info += ": " + p.Description
			}
			if len(p.Enum) > 0 {
				info += fmt.Sprintf(" [Options: %s]", strings.Join(p.Enum, ", "))
			}
			if p.Default != nil {
				info += fmt.Sprintf(" [Default: %v]", p.Default)
			}
			if p.Required {
				info += " [REQUIRED]"
			}
			lines = append(lines, "    - "+info)
		}
		descs = append(descs, strings.Join(lines, "\n"))

		if args := schema.ExampleArgs(symbol); len(args) > 0 {
			encoded, err := json.Marshal(args)
			if err != nil {
				continue
			}
			calls = append(calls, fmt.Sprintf(`  {"tool": "%s", "args": %s}`, schema.Name, encoded))
		}
	}

	return strings.Join(descs, "\n"), strings.Join(calls, "\n")
}

// failurePayload is the envelope fragment for an expected precondition
// failure. Run leaves these keys untouched when merging.
func failurePayload(errText, message string) map[string]interface{} {
	return map[string]interface{}{
		"status":  "failed",
		"error":   errText,
		"message": message,
	}
}
