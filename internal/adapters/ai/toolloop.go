package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"minerva/internal/metrics"
	"minerva/internal/tools"
	"minerva/pkg/logger"
)

const (
	// recentCallWindow is how many executed calls are checked for repeats.
	recentCallWindow = 3

	// truncateListAt caps list payloads fed back to the model.
	truncateListAt = 100

	defaultMaxIterations = 5
)

// invalidSymbolPlaceholders are argument values that signal the model lost
// the symbol from the question.
var invalidSymbolPlaceholders = map[string]bool{
	"UNKNOWN":         true,
	"UNKNOWN_COMPANY": true,
	"UNKNOWN_SYMBOL":  true,
	"N/A":             true,
	"NULL":            true,
}

// toolLoop drives the ReAct-style cycle shared by every provider: generate,
// parse tool calls from the response text, execute them, append the results
// to the transcript, repeat. The iteration cap is the only bound.
type toolLoop struct {
	provider Provider
	log      *logger.Logger
}

func newToolLoop(provider Provider, log *logger.Logger) *toolLoop {
	return &toolLoop{provider: provider, log: log}
}

func (l *toolLoop) run(ctx context.Context, req ToolRequest) (*ToolResponse, error) {
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	// Without tools this is a single plain completion.
	if len(req.Tools) == 0 {
		text, err := l.provider.Generate(ctx, GenerateRequest{
			Prompt:       req.Prompt,
			SystemPrompt: req.SystemPrompt,
			Temperature:  req.Temperature,
			MaxTokens:    req.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return &ToolResponse{Text: text, Iterations: 1}, nil
	}

	registry := tools.NewRegistry()
	if err := registry.RegisterAll(req.Tools...); err != nil {
		return nil, err
	}
	executor := tools.NewExecutor(registry, l.log)

	transcript := req.Prompt
	if req.SystemPrompt != "" {
		transcript = req.SystemPrompt + "\n\n" + req.Prompt
	}

	var (
		responseText string
		callsMade    []ToolCallRecord
		recentCalls  []string
		iterations   int
	)

	for iteration := 0; iteration < maxIterations; iteration++ {
		iterations = iteration + 1

		l.log.Debugw("tool loop iteration",
			"provider", l.provider.Name(),
			"iteration", iterations,
			"max_iterations", maxIterations,
		)

		text, err := l.provider.Generate(ctx, GenerateRequest{
			Prompt:      transcript,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			l.log.Errorw("tool loop generation failed",
				"provider", l.provider.Name(),
				"iteration", iterations,
				"error", err,
			)
			break
		}
		responseText = text

		calls := parseToolCalls(text, registry)
		if len(calls) == 0 {
			break
		}

		// A repeated identical call means the model is stuck.
		if sig, repeated := detectRepeat(calls, recentCalls); repeated {
			l.log.Warnw("tool call loop detected",
				"provider", l.provider.Name(),
				"iteration", iterations,
				"signature", sig,
			)
			break
		}

		for _, call := range calls {
			result := executor.Execute(ctx, call.Name, call.Args)

			recentCalls = append(recentCalls, callSignature(call.Name, call.Args))
			if len(recentCalls) > recentCallWindow {
				recentCalls = recentCalls[1:]
			}

			callsMade = append(callsMade, buildCallRecord(call, result))

			feedback, guidance := buildFeedback(call, result, iteration)
			transcript = transcript + "\n\nTool execution result:\n" + feedback
			if guidance != "" {
				transcript = transcript + "\n\n" + guidance
			}
		}
	}

	metrics.AgenticIterations.WithLabelValues(l.provider.Name()).Observe(float64(iterations))

	return &ToolResponse{
		Text:       responseText,
		ToolCalls:  callsMade,
		Iterations: iterations,
	}, nil
}

type parsedCall struct {
	Name string
	Args map[string]interface{}
}

// parseToolCalls extracts tool invocations from free-form model output. Two
// shapes are accepted: {"tool": ..., "args": {...}} and
// {"action": ..., "parameters": {...}}. Names not present in the registry
// are ignored rather than failed, since models quote tool names in prose.
func parseToolCalls(text string, registry *tools.Registry) []parsedCall {
	var calls []parsedCall
	for _, obj := range extractJSONObjects(text) {
		name, _ := firstString(obj, "tool", "action")
		args, ok := firstMap(obj, "args", "parameters")
		if name == "" || !ok {
			continue
		}
		if _, err := registry.Get(name); err != nil {
			continue
		}
		calls = append(calls, parsedCall{Name: name, Args: args})
	}
	return calls
}

// extractJSONObjects scans text for balanced-brace JSON objects. Candidates
// that fail to parse are skipped silently; models often emit partial JSON in
// their reasoning.
func extractJSONObjects(text string) []map[string]interface{} {
	var objects []map[string]interface{}

	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}

		end, ok := matchBrace(text, start)
		if !ok {
			continue
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(text[start:end]), &parsed); err == nil {
			objects = append(objects, parsed)
		}
	}

	return objects
}

// matchBrace returns the index one past the brace balancing text[start],
// honoring JSON string escapes.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}

	return 0, false
}

func firstString(obj map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func firstMap(obj map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	for _, key := range keys {
		if v, ok := obj[key].(map[string]interface{}); ok {
			return v, true
		}
	}
	return nil, false
}

// callSignature normalizes a call to detect exact repeats regardless of
// argument order.
func callSignature(name string, args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, args[k])
	}
	return b.String()
}

func detectRepeat(calls []parsedCall, recent []string) (string, bool) {
	for _, call := range calls {
		sig := callSignature(call.Name, call.Args)
		for _, seen := range recent {
			if sig == seen {
				return sig, true
			}
		}
	}
	return "", false
}

func buildCallRecord(call parsedCall, result tools.Result) ToolCallRecord {
	record := ToolCallRecord{
		Tool:     call.Name,
		Args:     call.Args,
		Success:  result.Success,
		Error:    result.Error,
		Metadata: result.Metadata,
	}
	if result.Success && result.Data != nil {
		record.Response = truncateLargeList(result.Data)
	}
	return record
}

// truncateLargeList caps list payloads so a long price history does not blow
// up the stored trace or the next prompt.
func truncateLargeList(data interface{}) interface{} {
	list, ok := asList(data)
	if !ok || len(list) <= truncateListAt {
		return data
	}
	return map[string]interface{}{
		"_truncated":   true,
		"_total_items": len(list),
		"_items_shown": truncateListAt,
		"data":         list[:truncateListAt],
		"note":         fmt.Sprintf("Response truncated: showing first %d of %d items", truncateListAt, len(list)),
	}
}

func asList(data interface{}) ([]interface{}, bool) {
	switch v := data.(type) {
	case []interface{}:
		return v, true
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// buildFeedback renders one tool result as the JSON block appended to the
// transcript, plus optional stop guidance when the model appears stuck.
func buildFeedback(call parsedCall, result tools.Result, iteration int) (string, string) {
	payload := map[string]interface{}{
		"tool":    call.Name,
		"success": result.Success,
	}

	if !result.Success {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		payload["error"] = errMsg
		return marshalFeedback(payload), ""
	}

	payload["data"] = truncateLargeList(result.Data)

	emptyResult := isEmptyResult(result.Data)
	invalidParams := hasInvalidParams(call.Args)

	if emptyResult || invalidParams {
		var warning strings.Builder
		if invalidParams {
			warning.WriteString("Tool was called with invalid parameters (e.g., UNKNOWN_COMPANY_SYMBOL). ")
			warning.WriteString("Please use the correct stock symbol from the original question. ")
		}
		if emptyResult {
			warning.WriteString("Tool returned empty result. ")
			warning.WriteString("This may indicate invalid parameters or no data available. ")
			if suggestion, ok := result.Metadata["suggestion"].(string); ok {
				warning.WriteString(suggestion)
			}
		}

		allowRetry, _ := result.Metadata["allow_retry"].(bool)
		if !allowRetry {
			warning.WriteString("Consider stopping and providing a final answer based on available information.")
		}
		payload["warning"] = warning.String()

		// From the second iteration on, push the model toward an answer
		// instead of another doomed call.
		if iteration >= 1 && !allowRetry {
			guidance := "IMPORTANT: Stop making tool calls now. " +
				"The tool returned empty results or was called with invalid parameters. " +
				"Provide your final answer based on any data you have received, " +
				"or explain that you cannot answer the question with the available tools."
			return marshalFeedback(payload), guidance
		}
	}

	return marshalFeedback(payload), ""
}

func marshalFeedback(payload map[string]interface{}) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}

func isEmptyResult(data interface{}) bool {
	switch v := data.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []map[string]interface{}:
		return len(v) == 0
	case map[string]interface{}:
		if len(v) == 0 {
			return true
		}
		for _, item := range v {
			if !isEmptyValue(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func hasInvalidParams(args map[string]interface{}) bool {
	for _, v := range args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if invalidSymbolPlaceholders[strings.ToUpper(s)] {
			return true
		}
	}
	return false
}
