package templates

import (
	"strings"
	"testing"
)

func TestAgenticPromptPair(t *testing.T) {
	data := map[string]interface{}{
		"Question":          "About AAPL: is the stock overvalued?",
		"ToolsDescription":  "  - get_stock_quote: Get the latest quote",
		"ToolExamples":      `  {"tool": "get_stock_quote", "args": {"symbol": "AAPL"}}`,
		"FinancialLiteracy": "beginner",
	}

	system, user, err := Get().Pair("research/agentic", data)
	if err != nil {
		t.Fatalf("render agentic prompt pair: %v", err)
	}

	requiredSystem := []string{
		"AVAILABLE TOOLS:",
		"get_stock_quote: Get the latest quote",
		`{"tool": "<tool_name>", "args":`,
		`{"tool": "get_stock_quote", "args": {"symbol": "AAPL"}}`,
		"beginner",
		"not investment advice",
	}
	for _, section := range requiredSystem {
		if !strings.Contains(system, section) {
			t.Errorf("system prompt missing %q", section)
		}
	}

	if !strings.Contains(user, "About AAPL: is the stock overvalued?") {
		t.Error("user prompt missing the question")
	}
	if !strings.Contains(user, "beginner") {
		t.Error("user prompt missing the literacy level")
	}
}

func TestAgenticPromptLiteracyInjection(t *testing.T) {
	for _, literacy := range []string{"beginner", "intermediate", "advanced"} {
		data := map[string]interface{}{
			"Question":          "what changed this quarter?",
			"ToolsDescription":  "tools",
			"ToolExamples":      "examples",
			"FinancialLiteracy": literacy,
		}

		system, user, err := Get().Pair("research/agentic", data)
		if err != nil {
			t.Fatalf("render pair for %s: %v", literacy, err)
		}
		if !strings.Contains(system, literacy) {
			t.Errorf("system prompt does not carry literacy %q", literacy)
		}
		if !strings.Contains(user, literacy) {
			t.Errorf("user prompt does not carry literacy %q", literacy)
		}
	}
}
