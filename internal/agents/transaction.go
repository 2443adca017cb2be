package agents

import (
	"context"
	"fmt"
	"time"

	"finguard/internal/store"
	"finguard/internal/types"
)

const transactionSystemPrompt = `You are a Transaction Agent. Your job is to help users record expenses, income, and view their liabilities.

CAPABILITIES:
1. add_expense - Record a manual expense/purchase
2. add_income - Record income received
3. get_recent_transactions - View recent transactions
4. get_liabilities_summary - View loans and credit card dues
5. get_financial_snapshot - Quick overview of cash flow and liabilities

RULES:
1. ALWAYS use tools to record or fetch data - never guess
2. When recording expenses, choose appropriate categories:
   - Electronics, Shopping, Food & Dining, Entertainment, Travel, Healthcare, Utilities, etc.
3. Use Indian Rupees (₹) for all amounts
4. For purchases, always use add_expense tool
5. Confirm what was recorded after each action
6. If user mentions buying something, record it as an expense

IMPORTANT:
- If user says "I spent/bought/purchased X for Y rupees", use add_expense
- Always include a description when adding transactions
- Be concise in responses`

// NewTransactionHandler builds the expenses, income and liabilities handler.
func NewTransactionHandler(llm types.LLMClient, s *store.Store) types.CapabilityHandler {
	return &runner{
		capability:   types.CapabilityTransaction,
		llm:          llm,
		systemPrompt: transactionSystemPrompt,
		tools: []tool{
			{
				def: types.ToolDefinition{
					Name:        "add_expense",
					Description: "Record a manual expense or purchase.",
					InputSchema: schema([]string{"amount", "category_name"}, map[string]any{
						"amount":        prop("number", "Amount spent in INR"),
						"category_name": prop("string", "Category, e.g. \"Shopping\", \"Electronics\", \"Food & Dining\""),
						"description":   prop("string", "Optional description of the purchase"),
						"date":          prop("string", "Optional date in YYYY-MM-DD format (defaults to today)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					return recordTransaction(s, userID, args, store.TxnDebit)
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "add_income",
					Description: "Record a manual income entry.",
					InputSchema: schema([]string{"amount", "source"}, map[string]any{
						"amount":      prop("number", "Amount received in INR"),
						"source":      prop("string", "Source of income, e.g. \"Salary\", \"Freelance\", \"Gift\""),
						"description": prop("string", "Optional description"),
						"date":        prop("string", "Optional date in YYYY-MM-DD format (defaults to today)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					return recordTransaction(s, userID, args, store.TxnCredit)
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "get_recent_transactions",
					Description: "Get the user's recent transactions.",
					InputSchema: schema(nil, map[string]any{
						"limit": prop("integer", "Number of transactions to return (default 10)"),
					}),
				},
				run: func(_ context.Context, userID int64, args map[string]any) (toolResult, error) {
					limit := int(argIntDefault(args, "limit", 10))
					txns, err := s.ListTransactions(userID, store.TxnFilter{Limit: limit})
					if err != nil {
						return toolResult{}, err
					}
					if len(txns) == 0 {
						return toolResult{payload: map[string]any{
							"status":       "no_transactions",
							"message":      "No transactions found.",
							"transactions": []any{},
						}}, nil
					}

					type txnView struct {
						Date        string  `json:"date"`
						Type        string  `json:"type"`
						Amount      float64 `json:"amount"`
						Description string  `json:"description"`
						Category    string  `json:"category"`
					}
					views := make([]txnView, len(txns))
					for i, t := range txns {
						views[i] = txnView{
							Date:        t.Date,
							Type:        t.Type,
							Amount:      t.Amount,
							Description: t.Narration,
							Category:    t.Category,
						}
					}
					return toolResult{payload: map[string]any{
						"status":       "success",
						"count":        len(views),
						"transactions": views,
					}}, nil
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "get_liabilities_summary",
					Description: "Get a summary of all liabilities: loans and credit card dues.",
					InputSchema: schema(nil, map[string]any{}),
				},
				run: func(_ context.Context, userID int64, _ map[string]any) (toolResult, error) {
					return liabilitiesSummary(s, userID)
				},
			},
			{
				def: types.ToolDefinition{
					Name:        "get_financial_snapshot",
					Description: "Get a quick financial snapshot: 30-day cash flow, balance and liabilities.",
					InputSchema: schema(nil, map[string]any{}),
				},
				run: func(_ context.Context, userID int64, _ map[string]any) (toolResult, error) {
					return financialSnapshot(s, userID)
				},
			},
		},
	}
}

func recordTransaction(s *store.Store, userID int64, args map[string]any, txnType string) (toolResult, error) {
	amount, err := argFloat(args, "amount")
	if err != nil {
		return toolResult{}, err
	}

	categoryKey := "category_name"
	if txnType == store.TxnCredit {
		categoryKey = "source"
	}
	category := argString(args, categoryKey)
	if category == "" {
		return toolResult{}, fmt.Errorf("argument %q is required", categoryKey)
	}

	date := argString(args, "date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	narration := argString(args, "description")
	if narration == "" {
		if txnType == store.TxnCredit {
			narration = fmt.Sprintf("Income from %s", category)
		} else {
			narration = fmt.Sprintf("%s expense", category)
		}
	}

	id, err := s.AddTransaction(store.Transaction{
		UserID:    userID,
		Category:  category,
		Date:      date,
		Type:      txnType,
		Amount:    amount,
		Narration: narration,
		Source:    store.SourceManual,
	})
	if err != nil {
		return toolResult{}, err
	}

	message := fmt.Sprintf("Recorded expense: ₹%.2f for %s", amount, category)
	kind := "expense"
	if txnType == store.TxnCredit {
		message = fmt.Sprintf("Recorded income: ₹%.2f from %s", amount, category)
		kind = "income"
	}
	return toolResult{payload: map[string]any{
		"status":         "success",
		"message":        message,
		"transaction_id": id,
		"transaction": map[string]any{
			"amount":      amount,
			"category":    category,
			"description": narration,
			"date":        date,
			"type":        kind,
		},
	}}, nil
}

func liabilitiesSummary(s *store.Store, userID int64) (toolResult, error) {
	loans, err := s.ListLoans(userID)
	if err != nil {
		return toolResult{}, err
	}
	cards, err := s.ListCreditCards(userID)
	if err != nil {
		return toolResult{}, err
	}

	var totalLoans, totalDue float64
	loanDetails := make([]map[string]any, len(loans))
	for i, l := range loans {
		totalLoans += l.RemainingBalance
		loanDetails[i] = map[string]any{
			"type":            l.Name,
			"original_amount": l.PrincipalAmount,
			"remaining":       l.RemainingBalance,
			"emi":             l.EMIAmount,
			"interest_rate":   l.InterestRate,
		}
	}
	cardDetails := make([]map[string]any, len(cards))
	for i, c := range cards {
		totalDue += c.CurrentBalance
		cardDetails[i] = map[string]any{
			"name":            c.CardName,
			"limit":           c.CreditLimit,
			"current_balance": c.CurrentBalance,
			"available":       c.CreditLimit - c.CurrentBalance,
			"due_date":        c.DueDate,
		}
	}

	return toolResult{payload: map[string]any{
		"status":            "success",
		"total_liabilities": totalLoans + totalDue,
		"loans": map[string]any{
			"count":             len(loans),
			"total_outstanding": totalLoans,
			"details":           loanDetails,
		},
		"credit_cards": map[string]any{
			"count":     len(cards),
			"total_due": totalDue,
			"details":   cardDetails,
		},
	}}, nil
}

func financialSnapshot(s *store.Store, userID int64) (toolResult, error) {
	start := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	txns, err := s.ListTransactions(userID, store.TxnFilter{StartDate: start})
	if err != nil {
		return toolResult{}, err
	}

	var income, expenses float64
	for _, t := range txns {
		switch t.Type {
		case store.TxnCredit:
			income += t.Amount
		case store.TxnDebit:
			expenses += t.Amount
		}
	}
	net := income - expenses
	flowStatus := "positive"
	if net < 0 {
		flowStatus = "negative"
	}

	balance, err := s.Balance(userID)
	if err != nil {
		return toolResult{}, err
	}
	loans, err := s.ListLoans(userID)
	if err != nil {
		return toolResult{}, err
	}
	cards, err := s.ListCreditCards(userID)
	if err != nil {
		return toolResult{}, err
	}
	var totalLoans, totalDue float64
	for _, l := range loans {
		totalLoans += l.RemainingBalance
	}
	for _, c := range cards {
		totalDue += c.CurrentBalance
	}

	return toolResult{payload: map[string]any{
		"status":  "success",
		"period":  "Last 30 days",
		"balance": balance,
		"cash_flow": map[string]any{
			"total_income":   income,
			"total_expenses": expenses,
			"net_flow":       net,
			"status":         flowStatus,
		},
		"liabilities": map[string]any{
			"total_loans":      totalLoans,
			"credit_card_dues": totalDue,
			"total":            totalLoans + totalDue,
		},
		"transaction_count": len(txns),
	}}, nil
}
