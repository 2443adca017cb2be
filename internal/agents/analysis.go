package agents

import (
	"context"

	"finguard/internal/analytics"
	"finguard/internal/types"
)

const analysisSystemPrompt = `You are a Financial Analyst Agent. Your ONLY job is to analyze transaction data.

CAPABILITIES:
1. get_spending_breakdown - Analyze spending by category
2. detect_spending_anomalies - Find unusual transactions
3. forecast_cash_flow - Predict future cash flow

RULES:
1. Use tools to fetch data - NEVER make up numbers or guess
2. Call ONE tool at a time, wait for result
3. After getting data, summarize findings clearly and STOP
4. If data shows "no_data" or "insufficient_data", inform user politely
5. Use Indian Rupees (₹) for all currency
6. Be concise - max 3-4 sentences for summary
7. If user asks something outside your scope, say "I can only help with spending analysis, anomaly detection, and cash flow forecasting."

IMPORTANT: After receiving tool results, provide your analysis and END your response. Do not call more tools unless absolutely necessary.`

// NewAnalysisHandler builds the read-only analytics handler.
func NewAnalysisHandler(llm types.LLMClient, engine *analytics.Engine) types.CapabilityHandler {
	return &runner{
		capability:   types.CapabilityAnalysis,
		llm:          llm,
		systemPrompt: analysisSystemPrompt,
		tools: []tool{
			{
				def: types.ToolDefinition{
					Name:        "get_spending_breakdown",
					Description: "Analyze spending by category over a period. Returns totals, per-category amounts and percentages.",
					InputSchema: schema(nil, map[string]any{
						"days":     prop("integer", "Number of days to analyze (default 30)"),
						"category": prop("string", "Optional category name to filter by"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					days := int(argIntDefault(args, "days", 30))
					result, err := engine.SpendingBreakdown(userID, days, argString(args, "category"))
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: result}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "detect_spending_anomalies",
					Description: "Find unusually large transactions compared to the user's typical spending.",
					InputSchema: schema(nil, map[string]any{
						"days": prop("integer", "Number of days to analyze (default 30)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					result, err := engine.DetectAnomalies(userID, int(argIntDefault(args, "days", 30)))
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: result}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "forecast_cash_flow",
					Description: "Project income and expenses 30 days forward from recent daily averages.",
					InputSchema: schema(nil, map[string]any{
						"days": prop("integer", "Number of past days to base the projection on (default 30)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					result, err := engine.ForecastCashFlow(userID, int(argIntDefault(args, "days", 30)))
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: result}, nil
				},
			},
		},
	}
}
