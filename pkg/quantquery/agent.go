package quantquery

import (
	"context"
	"fmt"
	"strings"
)

// ToolFunc runs one analytics tool against an aligned price matrix.
type ToolFunc func(data PriceMatrix, charts *ChartRenderer) ToolResult

// toolRegistry is the fixed set of available analytics. Initialized once,
// never mutated.
var toolRegistry = map[string]ToolFunc{
	"zscore": analyzeZScore,
	"rsi":    analyzeRSI,
	"sma":    analyzeSMA,
}

// toolNames is the registry in selection order.
var toolNames = []string{"zscore", "rsi", "sma"}

func isToolName(name string) bool {
	_, ok := toolRegistry[name]
	return ok
}

const noInsightsSummary = "No insights generated."

// MergePlans combines the heuristic and assisted plans field by field. The
// assisted value wins only where it supplied a non-empty value; a partial
// assisted plan inherits the rest from the heuristic one.
func MergePlans(heuristic QueryPlan, assisted *QueryPlan) QueryPlan {
	if assisted == nil {
		return heuristic
	}
	merged := heuristic
	if len(assisted.Tools) > 0 {
		merged.Tools = assisted.Tools
	}
	if len(assisted.Tickers) > 0 {
		merged.Tickers = assisted.Tickers
	}
	if assisted.StartDate != nil {
		merged.StartDate = assisted.StartDate
	}
	if assisted.EndDate != nil {
		merged.EndDate = assisted.EndDate
	}
	return merged
}

// Interpret converts a free-text query into an execution plan, merging the
// deterministic heuristic parse with the assisted one when available.
func (c *Core) Interpret(ctx context.Context, query string) QueryPlan {
	heuristic := HeuristicPlan(query, c.now())
	assisted, ok := c.assistant.PlanQuery(ctx, query)
	if !ok {
		return heuristic
	}
	return MergePlans(heuristic, assisted)
}

// Execute runs the plan-selected analytics against the aligned matrix and
// composes the narrative. An empty tool selection runs the whole registry.
func (c *Core) Execute(ctx context.Context, query string, data PriceMatrix, plan QueryPlan) *AgentResult {
	selected := plan.Tools
	if len(selected) == 0 {
		selected = toolNames
	}

	result := &AgentResult{
		ToolSummaries: make(map[string]string),
		ToolImages:    make(map[string][]string),
	}
	notes := make(map[string]string)
	var lines []string

	for _, name := range selected {
		tool, ok := toolRegistry[name]
		if !ok {
			continue
		}
		toolResult := tool(data, c.charts)
		result.ToolSummaries[toolResult.Name] = toolResult.Summary
		result.ToolImages[toolResult.Name] = toolResult.Images
		notes[toolResult.Name] = toolResult.Summary
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(toolResult.Name), toolResult.Summary))
	}

	if len(lines) == 0 {
		result.Summary = noInsightsSummary
		return result
	}
	if summary, ok := c.assistant.ComposeSummary(ctx, query, notes); ok {
		result.Summary = summary
		return result
	}
	result.Summary = strings.Join(lines, " \n")
	return result
}
