package agents

import (
	"context"
	"errors"
	"fmt"

	"finguard/internal/store"
	"finguard/internal/types"
)

const planningSystemPrompt = `You are a Financial Planner Agent. Your job is to help users manage their budgets and savings goals.

CAPABILITIES:
1. set_budget - Set or update a monthly budget for a category
2. remove_budget - Delete a budget
3. check_budget_status - Check spending vs budget limits
4. create_savings_goal - Create a new savings goal
5. add_to_goal - Add money to an existing goal (requires goal_id)
6. remove_goal - Delete a goal (requires goal_id)
7. get_goals_status - View all goals and their progress

RULES:
1. ALWAYS use tools to fetch or modify data - never guess
2. When user wants to update or delete a goal, FIRST call get_goals_status to find the goal_id
3. For budgets, use category names like "Food & Dining", "Shopping", "Entertainment", etc.
4. Use Indian Rupees (₹) for all amounts
5. Be encouraging about savings progress
6. After completing an action, summarize what was done

DUAL-ACTION HANDLING (IMPORTANT):
When you receive a query with [CONTEXT: A transaction was just recorded...]:
1. ALWAYS call get_goals_status FIRST to see the user's goals
2. Look for goals that match the purchase (e.g., "Gaming PC" goal matches "graphics card for gaming PC")
3. If a matching goal exists, call add_to_goal with the goal_id and the spent amount
4. If no matching goal exists, just acknowledge the expense was recorded

IMPORTANT:
- To update a goal, you need the goal_id. Call get_goals_status first if you don't have it.
- Budget months are in YYYY-MM format (e.g., "2024-11")
- Be concise in your responses.
- When updating goal after a purchase, confirm what was added to which goal.`

// NewPlanningHandler builds the budgets and savings goals handler.
func NewPlanningHandler(llm types.LLMClient, s *store.Store) types.CapabilityHandler {
	return &runner{
		capability:   types.CapabilityPlanning,
		llm:          llm,
		systemPrompt: planningSystemPrompt,
		tools: []tool{
			{
				def: types.ToolDefinition{
					Name:        "set_budget",
					Description: "Set or update a monthly budget for a specific category.",
					InputSchema: schema([]string{"category_name", "amount"}, map[string]any{
						"category_name": prop("string", "Category name, e.g. \"Food & Dining\""),
						"amount":        prop("number", "Budget limit amount in INR"),
						"month":         prop("string", "Month in YYYY-MM format (defaults to current month)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					amount, err := argFloat(args, "amount")
					if err != nil {
						return toolResult{}, err
					}
					category := argString(args, "category_name")
					b, err := s.UpsertBudget(userID, category, amount, argString(args, "month"))
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: map[string]any{
						"status":    "success",
						"message":   fmt.Sprintf("Budget set for %s: ₹%.2f for %s", b.CategoryName, b.AmountLimit, b.Month),
						"budget_id": b.ID,
						"category":  b.CategoryName,
						"amount":    b.AmountLimit,
						"month":     b.Month,
					}}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "remove_budget",
					Description: "Remove the budget for a category and month.",
					InputSchema: schema([]string{"category_name"}, map[string]any{
						"category_name": prop("string", "Category name to remove the budget for"),
						"month":         prop("string", "Month in YYYY-MM format (defaults to current month)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					category := argString(args, "category_name")
					month := argString(args, "month")
					if month == "" {
						month = store.CurrentMonth()
					}
					err := s.DeleteBudget(userID, category, month)
					if errors.Is(err, store.ErrNotFound) {
						return toolResult{payload: map[string]any{
							"status":  "not_found",
							"message": fmt.Sprintf("No budget found for %s in %s", category, month),
						}}, nil
					}
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: map[string]any{
						"status":  "success",
						"message": fmt.Sprintf("Budget removed for %s (%s)", category, month),
					}}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "check_budget_status",
					Description: "Check all budgets for a month: spent vs limit per category.",
					InputSchema: schema(nil, map[string]any{
						"month": prop("string", "Month in YYYY-MM format (defaults to current month)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					month := argString(args, "month")
					if month == "" {
						month = store.CurrentMonth()
					}
					return budgetStatus(s, userID, month)
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "create_savings_goal",
					Description: "Create a new savings goal.",
					InputSchema: schema([]string{"name", "target_amount"}, map[string]any{
						"name":          prop("string", "Name of the goal, e.g. \"MacBook Pro\""),
						"target_amount": prop("number", "Target amount to save in INR"),
						"target_date":   prop("string", "Optional deadline in YYYY-MM-DD format"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					target, err := argFloat(args, "target_amount")
					if err != nil {
						return toolResult{}, err
					}
					name := argString(args, "name")
					id, err := s.CreateGoal(userID, name, target, argString(args, "target_date"))
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: map[string]any{
						"status":        "success",
						"message":       fmt.Sprintf("Goal '%s' created with target ₹%.2f", name, target),
						"goal_id":       id,
						"name":          name,
						"target_amount": target,
					}}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "add_to_goal",
					Description: "Add funds to an existing savings goal. Requires goal_id from get_goals_status.",
					InputSchema: schema([]string{"goal_id", "amount"}, map[string]any{
						"goal_id": prop("integer", "The ID of the goal to update"),
						"amount":  prop("number", "Amount to add to the goal in INR"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					goalID, err := argInt(args, "goal_id")
					if err != nil {
						return toolResult{}, err
					}
					amount, err := argFloat(args, "amount")
					if err != nil {
						return toolResult{}, err
					}
					g, err := s.AddToGoal(userID, goalID, amount)
					if errors.Is(err, store.ErrNotFound) {
						return toolResult{payload: map[string]any{
							"status":  "error",
							"message": fmt.Sprintf("Goal with ID %d not found", goalID),
						}}, nil
					}
					if err != nil {
						return toolResult{}, err
					}
					percent := 0.0
					if g.TargetAmount > 0 {
						percent = g.CurrentAmount / g.TargetAmount * 100
					}
					return toolResult{payload: map[string]any{
						"status":           "success",
						"message":          fmt.Sprintf("Added ₹%.2f to '%s'", amount, g.Name),
						"goal_name":        g.Name,
						"added":            amount,
						"new_amount":       g.CurrentAmount,
						"target":           g.TargetAmount,
						"percent_complete": percent,
					}}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "remove_goal",
					Description: "Delete a savings goal. Requires goal_id from get_goals_status.",
					InputSchema: schema([]string{"goal_id"}, map[string]any{
						"goal_id": prop("integer", "The ID of the goal to delete"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					goalID, err := argInt(args, "goal_id")
					if err != nil {
						return toolResult{}, err
					}
					err = s.DeleteGoal(userID, goalID)
					if errors.Is(err, store.ErrNotFound) {
						return toolResult{payload: map[string]any{
							"status":  "error",
							"message": fmt.Sprintf("Goal with ID %d not found", goalID),
						}}, nil
					}
					if err != nil {
						return toolResult{}, err
					}
					return toolResult{payload: map[string]any{
						"status":  "success",
						"message": "Goal deleted successfully",
					}}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "get_goals_status",
					Description: "Get all savings goals and their progress.",
					InputSchema: schema(nil, map[string]any{}),
				},
				run: func(_ context.Context, userID int64, _ map[string]any) (toolResult, error) {
					return goalsStatus(s, userID)
				},
			},
		},
	}
}

func budgetStatus(s *store.Store, userID int64, month string) (toolResult, error) {
	budgets, err := s.ListBudgets(userID, month)
	if err != nil {
		return toolResult{}, err
	}
	if len(budgets) == 0 {
		return toolResult{payload: map[string]any{
			"status":     "no_budgets",
			"month":      month,
			"message":    "No budgets set for this month.",
			"categories": []any{},
		}}, nil
	}

	type categoryStatus struct {
		Category    string  `json:"category"`
		Limit       float64 `json:"limit"`
		Spent       float64 `json:"spent"`
		Remaining   float64 `json:"remaining"`
		PercentUsed float64 `json:"percent_used"`
		Status      string  `json:"status"`
	}

	var analysis []categoryStatus
	var totalBudget, totalSpent float64
	for _, b := range budgets {
		spent, err := s.SpentInMonth(userID, b.CategoryID, month)
		if err != nil {
			return toolResult{}, err
		}

		percent := 0.0
		if b.AmountLimit > 0 {
			percent = spent / b.AmountLimit * 100
		}
		status := "on_track"
		switch {
		case spent > b.AmountLimit:
			status = "over_budget"
		case percent > 90:
			status = "warning"
		case percent > 75:
			status = "caution"
		}

		analysis = append(analysis, categoryStatus{
			Category:    b.CategoryName,
			Limit:       b.AmountLimit,
			Spent:       spent,
			Remaining:   b.AmountLimit - spent,
			PercentUsed: percent,
			Status:      status,
		})
		totalBudget += b.AmountLimit
		totalSpent += spent
	}

	overall := "on_track"
	if totalSpent > totalBudget {
		overall = "over_budget"
	}
	return toolResult{payload: map[string]any{
		"status":          "success",
		"month":           month,
		"total_budget":    totalBudget,
		"total_spent":     totalSpent,
		"total_remaining": totalBudget - totalSpent,
		"overall_status":  overall,
		"categories":      analysis,
	}}, nil
}

func goalsStatus(s *store.Store, userID int64) (toolResult, error) {
	goals, err := s.ListGoals(userID)
	if err != nil {
		return toolResult{}, err
	}
	if len(goals) == 0 {
		return toolResult{payload: map[string]any{
			"status":  "no_goals",
			"message": "No savings goals found. Create one to start tracking!",
			"goals":   []any{},
		}}, nil
	}

	type goalStatus struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Target    float64 `json:"target"`
		Saved     float64 `json:"saved"`
		Remaining float64 `json:"remaining"`
		Percent   float64 `json:"percent"`
		Deadline  string  `json:"deadline,omitempty"`
		Status    string  `json:"status"`
	}

	var result []goalStatus
	var totalTarget, totalSaved float64
	for _, g := range goals {
		percent := 0.0
		if g.TargetAmount > 0 {
			percent = g.CurrentAmount / g.TargetAmount * 100
		}
		status := "just_started"
		switch {
		case percent >= 100:
			status = "completed"
		case percent >= 75:
			status = "almost_there"
		case percent >= 50:
			status = "halfway"
		case percent >= 25:
			status = "in_progress"
		}
		result = append(result, goalStatus{
			ID:        g.ID,
			Name:      g.Name,
			Target:    g.TargetAmount,
			Saved:     g.CurrentAmount,
			Remaining: g.TargetAmount - g.CurrentAmount,
			Percent:   percent,
			Deadline:  g.TargetDate,
			Status:    status,
		})
		totalTarget += g.TargetAmount
		totalSaved += g.CurrentAmount
	}

	overallPercent := 0.0
	if totalTarget > 0 {
		overallPercent = totalSaved / totalTarget * 100
	}
	return toolResult{payload: map[string]any{
		"status":          "success",
		"total_goals":     len(result),
		"total_target":    totalTarget,
		"total_saved":     totalSaved,
		"overall_percent": overallPercent,
		"goals":           result,
	}}, nil
}
