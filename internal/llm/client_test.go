package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finguard/internal/types"
)

func testClient(t *testing.T, handler http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGroqClientWithConfig(GroqConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
}

func TestCompleteWithSystem(t *testing.T) {
	var gotReq chatRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "  hello  "}},
			},
			"usage": map[string]int{"total_tokens": 10},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	out, err := client.CompleteWithSystem(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "sys", gotReq.Messages[0].Content)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestCompleteWithToolsParsesToolCalls(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "add_expense", req.Tools[0].Function.Name)
		assert.Equal(t, "auto", req.ToolChoice)

		resp := `{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "add_expense", "arguments": "{\"amount\": 15000, \"category_name\": \"Electronics\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`
		w.Write([]byte(resp))
	})

	tools := []types.ToolDefinition{{
		Name:        "add_expense",
		Description: "Record an expense",
		InputSchema: map[string]interface{}{"type": "object"},
	}}

	resp, err := client.CompleteWithTools(context.Background(), "sys", "I spent 15000", tools)
	require.NoError(t, err)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_expense", resp.ToolCalls[0].Name)
	assert.Equal(t, float64(15000), resp.ToolCalls[0].Input["amount"])
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "ok"}},
			},
		})
	})

	out, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad model"}}`))
	})

	_, err := client.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMissingAPIKey(t *testing.T) {
	client := NewGroqClient("")
	_, err := client.Complete(context.Background(), "hi")
	assert.Error(t, err)
}

func TestWithModel(t *testing.T) {
	client := NewGroqClient("k")
	other := client.WithModel("other-model")
	assert.Equal(t, "other-model", other.Model())
	assert.NotEqual(t, client.Model(), other.Model())
	// Same model returns the same client.
	assert.Same(t, client, client.WithModel(client.Model()))
}
