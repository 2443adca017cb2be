package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finguard/internal/analytics"
	"finguard/internal/knowledge"
	"finguard/internal/store"
	"finguard/internal/types"
)

// scriptedLLM replays canned tool responses in order and records the
// prompts it saw.
type scriptedLLM struct {
	responses []*types.LLMToolResponse
	err       error
	prompts   []string
	calls     int
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) CompleteWithSystem(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) CompleteWithTools(_ context.Context, _, userPrompt string, _ []types.ToolDefinition) (*types.LLMToolResponse, error) {
	s.prompts = append(s.prompts, userPrompt)
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.responses) {
		return &types.LLMToolResponse{Text: "done", StopReason: "end_turn"}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func toolUse(name string, input map[string]any) *types.LLMToolResponse {
	return &types.LLMToolResponse{
		StopReason: "tool_use",
		ToolCalls:  []types.ToolCall{{ID: "call_1", Name: name, Input: input}},
	}
}

func finalText(text string) *types.LLMToolResponse {
	return &types.LLMToolResponse{Text: text, StopReason: "end_turn"}
}

func newAgentStore(t *testing.T) (*store.Store, int64) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	uid, err := s.GetOrCreateUser("+911234567890")
	require.NoError(t, err)
	return s, uid
}

func TestAnalysisHandlerRunsToolAndAnswers(t *testing.T) {
	s, uid := newAgentStore(t)
	_, err := s.AddTransaction(store.Transaction{
		UserID: uid, Category: "Food", Date: "2026-08-20",
		Type: store.TxnDebit, Amount: 500, Source: store.SourceManual,
	})
	require.NoError(t, err)

	llm := &scriptedLLM{responses: []*types.LLMToolResponse{
		toolUse("get_spending_breakdown", map[string]any{"days": float64(30)}),
		finalText("You spent ₹500, all on Food."),
	}}
	h := NewAnalysisHandler(llm, analytics.NewEngine(s, 0))

	out, err := h.Invoke(context.Background(), uid, "how much did I spend?")
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹500, all on Food.", out.Text)
	assert.Equal(t, []string{"get_spending_breakdown"}, out.InvokedSubTools)
	assert.Equal(t, 3, out.MessageCount)

	// The second round sees the tool payload in the transcript.
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], fmt.Sprintf("[User ID: %d]", uid))
	assert.Contains(t, llm.prompts[1], "[Tool get_spending_breakdown returned]")
	assert.Contains(t, llm.prompts[1], `"total_spent":500`)
}

func TestPlanningHandlerDualAction(t *testing.T) {
	s, uid := newAgentStore(t)
	goalID, err := s.CreateGoal(uid, "Gaming PC", 150000, "")
	require.NoError(t, err)

	llm := &scriptedLLM{responses: []*types.LLMToolResponse{
		toolUse("get_goals_status", map[string]any{}),
		toolUse("add_to_goal", map[string]any{"goal_id": float64(goalID), "amount": "30000"}),
		finalText("Added ₹30,000 to your Gaming PC goal."),
	}}
	h := NewPlanningHandler(llm, s)

	out, err := h.Invoke(context.Background(), uid,
		"[CONTEXT: A transaction was just recorded...] update my goals")
	require.NoError(t, err)
	assert.Equal(t, []string{"get_goals_status", "add_to_goal"}, out.InvokedSubTools)

	g, err := s.GoalByID(uid, goalID)
	require.NoError(t, err)
	assert.InDelta(t, 30000, g.CurrentAmount, 0.001)
}

func TestPlanningHandlerBudgetStatus(t *testing.T) {
	s, uid := newAgentStore(t)
	month := store.CurrentMonth()
	_, err := s.UpsertBudget(uid, "Food", 5000, month)
	require.NoError(t, err)

	llm := &scriptedLLM{responses: []*types.LLMToolResponse{
		toolUse("check_budget_status", map[string]any{}),
		finalText("You are on track."),
	}}
	h := NewPlanningHandler(llm, s)

	out, err := h.Invoke(context.Background(), uid, "how are my budgets?")
	require.NoError(t, err)
	assert.Equal(t, "You are on track.", out.Text)
	assert.Contains(t, llm.prompts[1], `"overall_status":"on_track"`)
}

func TestTransactionHandlerRecordsExpense(t *testing.T) {
	s, uid := newAgentStore(t)

	llm := &scriptedLLM{responses: []*types.LLMToolResponse{
		toolUse("add_expense", map[string]any{
			"amount":        "2500",
			"category_name": "Electronics",
			"description":   "wireless mouse",
		}),
		finalText("Recorded ₹2,500 for Electronics."),
	}}
	h := NewTransactionHandler(llm, s)

	out, err := h.Invoke(context.Background(), uid, "I bought a mouse for 2500")
	require.NoError(t, err)
	assert.Equal(t, []string{"add_expense"}, out.InvokedSubTools)

	txns, err := s.ListTransactions(uid, store.TxnFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, store.TxnDebit, txns[0].Type)
	assert.InDelta(t, 2500, txns[0].Amount, 0.001)
	assert.Equal(t, "wireless mouse", txns[0].Narration)

	bal, err := s.Balance(uid)
	require.NoError(t, err)
	assert.InDelta(t, -2500, bal, 0.001)
}

func TestKnowledgeHandlerCollectsSources(t *testing.T) {
	s, _ := newAgentStore(t)
	base, err := knowledge.NewBase(s.DB(), nil)
	require.NoError(t, err)
	require.NoError(t, base.ReplaceDocument(context.Background(), "sip.md", "SIP Guide", []string{
		"A SIP invests a fixed amount into mutual funds every month.",
	}))

	llm := &scriptedLLM{responses: []*types.LLMToolResponse{
		toolUse("search_knowledge_base", map[string]any{"query": "what is a sip investment"}),
		finalText("A SIP is a recurring mutual fund investment."),
	}}
	h := NewKnowledgeHandler(llm, base)

	out, err := h.Invoke(context.Background(), 1, "what is a SIP?")
	require.NoError(t, err)
	assert.Equal(t, []string{"SIP Guide"}, out.SourceRefs)
	assert.Contains(t, llm.prompts[1], "mutual funds")
}

func TestHandlerPropagatesLLMError(t *testing.T) {
	s, uid := newAgentStore(t)

	llm := &scriptedLLM{err: errors.New("rate limited")}
	h := NewTransactionHandler(llm, s)

	_, err := h.Invoke(context.Background(), uid, "add expense")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestHandlerUnknownToolFedBack(t *testing.T) {
	s, uid := newAgentStore(t)

	llm := &scriptedLLM{responses: []*types.LLMToolResponse{
		toolUse("transfer_funds", map[string]any{}),
		finalText("I cannot do that."),
	}}
	h := NewTransactionHandler(llm, s)

	out, err := h.Invoke(context.Background(), uid, "wire money to my friend")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", out.Text)
	assert.Contains(t, llm.prompts[1], "unknown tool transfer_funds")
}

func TestHandlerStepBudget(t *testing.T) {
	s, uid := newAgentStore(t)

	// Always asks for another tool; loop must stop at the step budget.
	looping := make([]*types.LLMToolResponse, maxToolSteps+5)
	for i := range looping {
		looping[i] = toolUse("get_recent_transactions", map[string]any{})
	}
	llm := &scriptedLLM{responses: looping}
	h := NewTransactionHandler(llm, s)

	out, err := h.Invoke(context.Background(), uid, "show transactions")
	require.NoError(t, err)
	assert.Equal(t, maxToolSteps, llm.calls)
	assert.NotEmpty(t, out.Text)
	assert.Len(t, out.InvokedSubTools, maxToolSteps)
}

func TestArgCoercion(t *testing.T) {
	f, err := argFloat(map[string]any{"amount": "42.5"}, "amount")
	require.NoError(t, err)
	assert.Equal(t, 42.5, f)

	f, err = argFloat(map[string]any{"amount": float64(10)}, "amount")
	require.NoError(t, err)
	assert.Equal(t, 10.0, f)

	_, err = argFloat(map[string]any{}, "amount")
	assert.Error(t, err)

	_, err = argFloat(map[string]any{"amount": "lots"}, "amount")
	assert.Error(t, err)

	n, err := argInt(map[string]any{"goal_id": "7"}, "goal_id")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	assert.Equal(t, "hi", argString(map[string]any{"q": " hi "}, "q"))
	assert.Equal(t, "3", argString(map[string]any{"q": float64(3)}, "q"))
	assert.Equal(t, "", argString(map[string]any{}, "q"))

	assert.EqualValues(t, 10, argIntDefault(map[string]any{}, "limit", 10))
	assert.EqualValues(t, 5, argIntDefault(map[string]any{"limit": float64(5)}, "limit", 10))
	assert.EqualValues(t, 10, argIntDefault(map[string]any{"limit": float64(-1)}, "limit", 10))
}
