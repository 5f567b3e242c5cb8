// Package workflows implements the analysis strategies the engine can run
// against a research: a deterministic static pipeline and an LLM-driven
// agentic loop. Executors share a result envelope applied by Run, so every
// workflow produces the same outer shape regardless of how it works inside.
package workflows

import (
	"context"

	"minerva/internal/domain/research"
)

// Executor produces analysis results for one workflow type.
type Executor interface {
	// WorkflowType returns the identifier matched against
	// research.WorkflowType during executor selection.
	WorkflowType() string

	// Validate reports whether this executor can run the given research.
	Validate(res *research.Research) bool

	// Execute runs the workflow and returns its result map. Expected
	// business failures are reported inside the map with status "failed";
	// a returned error means the workflow machinery itself broke.
	Execute(ctx context.Context, res *research.Research, wfCtx Context) (map[string]interface{}, error)
}

// Context carries per-execution parameters into a workflow: the question,
// the requester's literacy level and profile-derived hints.
type Context map[string]interface{}

// Question returns the natural-language question, empty when absent.
func (c Context) Question() string {
	q, _ := c["question"].(string)
	return q
}

// Literacy returns the requester's financial literacy level, defaulting
// to intermediate.
func (c Context) Literacy() string {
	if l, ok := c["financial_literacy"].(string); ok && l != "" {
		return l
	}
	return "intermediate"
}

// Preferences returns profile preferences, nil when none were merged in.
func (c Context) Preferences() map[string]string {
	p, _ := c["profile_preferences"].(map[string]string)
	return p
}

// DisplayName returns the requester's display name, empty when absent.
func (c Context) DisplayName() string {
	n, _ := c["profile_display_name"].(string)
	return n
}
