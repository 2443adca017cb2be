package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"finguard/internal/orchestrator"
	"finguard/internal/store"
	"finguard/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener goroutine per pool.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type stubProcessor struct {
	result *orchestrator.Result
	err    error
	gotID  int64
	gotMsg string
}

func (p *stubProcessor) Process(_ context.Context, userID int64, query string) (*orchestrator.Result, error) {
	p.gotID = userID
	p.gotMsg = query
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func startTestServer(t *testing.T, proc QueryProcessor) (*Server, *store.Store, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := New("127.0.0.1:0", st, proc)
	require.NoError(t, err)
	go srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, st, "http://" + srv.Addr()
}

func postChat(t *testing.T, base string, body any) (*http.Response, chatResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(base+"/api/chat/message", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out chatResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestChatMessageSuccess(t *testing.T) {
	proc := &stubProcessor{result: &orchestrator.Result{
		Response:   "You spent ₹500.",
		AgentsUsed: []types.Capability{types.CapabilityAnalysis},
	}}
	_, st, base := startTestServer(t, proc)

	uid, err := st.GetOrCreateUser("+911234567890")
	require.NoError(t, err)

	resp, out := postChat(t, base, map[string]any{
		"user_id": uid,
		"message": "how much did I spend?",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.Equal(t, "You spent ₹500.", out.Response)
	assert.Equal(t, []string{"analysis"}, out.AgentsUsed)
	assert.Equal(t, uid, proc.gotID)
	assert.Equal(t, "how much did I spend?", proc.gotMsg)
}

func TestChatMessageByPhoneCreatesUser(t *testing.T) {
	proc := &stubProcessor{result: &orchestrator.Result{Response: "hi"}}
	_, st, base := startTestServer(t, proc)

	resp, out := postChat(t, base, map[string]any{
		"phone_number": "+919999999999",
		"message":      "hello",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)

	_, err := st.UserIDByPhone("+919999999999")
	assert.NoError(t, err)
}

func TestChatMessageOrchestrationFailureApologizes(t *testing.T) {
	proc := &stubProcessor{err: errors.New("capability transaction failed: boom")}
	_, st, base := startTestServer(t, proc)

	uid, err := st.GetOrCreateUser("+911234567890")
	require.NoError(t, err)

	resp, out := postChat(t, base, map[string]any{"user_id": uid, "message": "hi"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Equal(t, apologyMessage, out.Response)
	// The technical cause never reaches the client.
	assert.NotContains(t, out.Error, "boom")
}

func TestChatMessageValidation(t *testing.T) {
	proc := &stubProcessor{result: &orchestrator.Result{Response: "hi"}}
	_, _, base := startTestServer(t, proc)

	resp, _ := postChat(t, base, map[string]any{"user_id": 1, "message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postChat(t, base, map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown explicit user id is rejected, not auto-created.
	resp, _ = postChat(t, base, map[string]any{"user_id": 999, "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatMessageMethodNotAllowed(t *testing.T) {
	_, _, base := startTestServer(t, &stubProcessor{})

	resp, err := http.Get(base + "/api/chat/message")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	_, _, base := startTestServer(t, &stubProcessor{})

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRESTEndpoints(t *testing.T) {
	_, st, base := startTestServer(t, &stubProcessor{})

	uid, err := st.GetOrCreateUser("+911234567890")
	require.NoError(t, err)

	_, err = st.AddTransaction(store.Transaction{
		UserID: uid, Category: "Food", Date: time.Now().Format("2006-01-02"),
		Type: store.TxnDebit, Amount: 750, Source: store.SourceManual,
	})
	require.NoError(t, err)
	_, err = st.UpsertBudget(uid, "Food", 5000, store.CurrentMonth())
	require.NoError(t, err)
	_, err = st.CreateGoal(uid, "Trip", 30000, "")
	require.NoError(t, err)
	_, err = st.CreateLoan(store.Loan{UserID: uid, Name: "Car Loan", RemainingBalance: 100000})
	require.NoError(t, err)

	get := func(path string) map[string]any {
		t.Helper()
		resp, err := http.Get(fmt.Sprintf("%s%s?user_id=%d", base, path, uid))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	txns := get("/api/transactions")
	assert.EqualValues(t, 1, txns["count"])

	budgets := get("/api/budgets")
	assert.Len(t, budgets["budgets"], 1)

	goals := get("/api/goals")
	assert.Len(t, goals["goals"], 1)

	liabilities := get("/api/liabilities")
	assert.Len(t, liabilities["loans"], 1)

	snapshot := get("/api/snapshot")
	assert.EqualValues(t, -750, snapshot["balance"])
}

// send issues a JSON request with an arbitrary method and decodes the reply.
func send(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	out := map[string]any{}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestBudgetWriteEndpoints(t *testing.T) {
	_, st, base := startTestServer(t, &stubProcessor{})
	uid, err := st.GetOrCreateUser("+911234567890")
	require.NoError(t, err)

	resp, out := send(t, http.MethodPost, base+"/api/budgets", map[string]any{
		"user_id": uid, "category": "Food", "amount_limit": 4000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])

	budgets, err := st.ListBudgets(uid, store.CurrentMonth())
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.InDelta(t, 4000, budgets[0].AmountLimit, 0.001)

	// Same category and month replaces the limit instead of adding a row.
	resp, _ = send(t, http.MethodPost, base+"/api/budgets", map[string]any{
		"user_id": uid, "category": "food", "amount_limit": 5500,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	budgets, err = st.ListBudgets(uid, store.CurrentMonth())
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.InDelta(t, 5500, budgets[0].AmountLimit, 0.001)

	resp, _ = send(t, http.MethodDelete, base+"/api/budgets", map[string]any{
		"user_id": uid, "category": "Food",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Deleting again is a 404.
	resp, _ = send(t, http.MethodDelete, base+"/api/budgets", map[string]any{
		"user_id": uid, "category": "Food",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A non-positive limit is rejected.
	resp, _ = send(t, http.MethodPost, base+"/api/budgets", map[string]any{
		"user_id": uid, "category": "Food", "amount_limit": -10,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGoalWriteEndpoints(t *testing.T) {
	_, st, base := startTestServer(t, &stubProcessor{})
	uid, err := st.GetOrCreateUser("+911234567890")
	require.NoError(t, err)

	resp, out := send(t, http.MethodPost, base+"/api/goals", map[string]any{
		"user_id": uid, "name": "MacBook", "target_amount": 200000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	goal, ok := out["goal"].(map[string]any)
	require.True(t, ok)
	goalID := int64(goal["ID"].(float64))

	resp, out = send(t, http.MethodPost, base+"/api/goals/add-funds", map[string]any{
		"user_id": uid, "goal_id": goalID, "amount": 15000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	goal = out["goal"].(map[string]any)
	assert.InDelta(t, 15000, goal["CurrentAmount"].(float64), 0.001)

	// Contributions to another user's goal are rejected.
	other, err := st.GetOrCreateUser("+919999999999")
	require.NoError(t, err)
	resp, _ = send(t, http.MethodPost, base+"/api/goals/add-funds", map[string]any{
		"user_id": other, "goal_id": goalID, "amount": 1000,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, http.MethodDelete, base+"/api/goals", map[string]any{
		"user_id": uid, "goal_id": goalID,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	goals, err := st.ListGoals(uid)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestManualTransactionEndpoint(t *testing.T) {
	_, st, base := startTestServer(t, &stubProcessor{})
	uid, err := st.GetOrCreateUser("+911234567890")
	require.NoError(t, err)

	resp, out := send(t, http.MethodPost, base+"/api/transactions/manual", map[string]any{
		"user_id": uid, "type": store.TxnCredit, "amount": 50000, "category": "Salary",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 50000, out["new_balance"].(float64), 0.001)

	resp, out = send(t, http.MethodPost, base+"/api/transactions/manual", map[string]any{
		"user_id": uid, "type": store.TxnDebit, "amount": 1250.50, "category": "Food",
		"narration": "lunch",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 48749.50, out["new_balance"].(float64), 0.001)

	// A bad type never reaches the store as a row.
	resp, _ = send(t, http.MethodPost, base+"/api/transactions/manual", map[string]any{
		"user_id": uid, "type": "TRANSFER", "amount": 10, "category": "Misc",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	txns, err := st.ListTransactions(uid, store.TxnFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestWriteEndpointsRejectUnknownUser(t *testing.T) {
	_, _, base := startTestServer(t, &stubProcessor{})

	resp, _ := send(t, http.MethodPost, base+"/api/budgets", map[string]any{
		"user_id": 42, "category": "Food", "amount_limit": 1000,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, http.MethodPost, base+"/api/transactions/manual", map[string]any{
		"user_id": 42, "type": store.TxnDebit, "amount": 10, "category": "Food",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRESTRejectsUnknownUser(t *testing.T) {
	_, _, base := startTestServer(t, &stubProcessor{})

	resp, err := http.Get(base + "/api/goals?user_id=42")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(base + "/api/goals?user_id=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
