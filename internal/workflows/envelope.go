package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"minerva/internal/domain/research"
	"minerva/pkg/logger"
)

// Run executes a workflow inside the shared result envelope. The envelope
// carries the identifying fields every workflow result must have; the
// executor's map is merged over it. A returned executor error is folded
// into a failed result instead of propagating, so callers always receive a
// complete result map. Panics are not caught here.
func Run(ctx context.Context, exec Executor, res *research.Research, wfCtx Context, log *logger.Logger) map[string]interface{} {
	symbol := strings.ToUpper(res.StockSymbol)
	workflowType := exec.WorkflowType()

	results := map[string]interface{}{
		"workflow_type":       workflowType,
		"stock_symbol":        symbol,
		"timeframe":           string(res.Timeframe),
		"analysis_type":       workflowType,
		"execution_timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	log.Infow("Starting workflow execution",
		"workflow", workflowType, "symbol", symbol, "timeframe", res.Timeframe)

	out, err := exec.Execute(ctx, res, wfCtx)
	if err != nil {
		log.Errorw("Workflow execution failed",
			"workflow", workflowType, "symbol", symbol, "error", err)
		results["status"] = "failed"
		results["error"] = err.Error()
		results["message"] = fmt.Sprintf("%s workflow execution failed: %s", capitalize(workflowType), err.Error())
		return results
	}

	for k, v := range out {
		results[k] = v
	}
	if _, ok := out["status"]; !ok {
		results["status"] = "completed"
		results["message"] = fmt.Sprintf("%s workflow executed successfully", capitalize(workflowType))
	}

	log.Infow("Workflow execution completed",
		"workflow", workflowType, "symbol", symbol, "status", results["status"])

	return results
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
