// Package agents implements the capability handlers. Each handler runs a
// bounded tool loop against the LLM: the model either answers directly or
// requests tool calls, whose results are appended to the transcript for
// the next round.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"finguard/internal/logging"
	"finguard/internal/types"
)

// maxToolSteps bounds the reasoning loop so a confused model cannot spin
// forever.
const maxToolSteps = 12

// toolResult carries a tool's payload plus any source references it wants
// surfaced on the capability output.
type toolResult struct {
	payload any
	sources []string
}

type toolFunc func(ctx context.Context, userID int64, args map[string]any) (toolResult, error)

type tool struct {
	def types.ToolDefinition
	run toolFunc
}

// runner is the generic handler harness. The concrete handlers differ only
// in capability id, system prompt and toolset.
type runner struct {
	capability   types.Capability
	llm          types.LLMClient
	systemPrompt string
	tools        []tool
}

func (r *runner) Capability() types.Capability { return r.capability }

// Invoke runs the tool loop to completion. Tool execution failures are fed
// back to the model as error payloads; LLM transport errors propagate.
func (r *runner) Invoke(ctx context.Context, userID int64, query string) (*types.CapabilityOutput, error) {
	defs := make([]types.ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.def
	}

	var transcript strings.Builder
	fmt.Fprintf(&transcript, "[User ID: %d] %s", userID, query)

	out := &types.CapabilityOutput{}
	lastText := ""

	for step := 0; step < maxToolSteps; step++ {
		resp, err := r.llm.CompleteWithTools(ctx, r.systemPrompt, transcript.String(), defs)
		if err != nil {
			return nil, fmt.Errorf("%s handler: %w", r.capability, err)
		}
		out.MessageCount++
		if resp.Text != "" {
			lastText = resp.Text
		}

		if len(resp.ToolCalls) == 0 {
			out.Text = resp.Text
			logging.Agents("%s handler done: %d steps, tools=%v", r.capability, step+1, out.InvokedSubTools)
			return out, nil
		}

		for _, call := range resp.ToolCalls {
			out.InvokedSubTools = append(out.InvokedSubTools, call.Name)
			out.MessageCount++

			payload := r.execute(ctx, userID, call, out)
			fmt.Fprintf(&transcript, "\n\n[Tool %s returned]\n%s", call.Name, payload)
		}
	}

	// Budget exhausted: answer with whatever the model said last.
	logging.Agents("%s handler hit step budget, returning last text", r.capability)
	out.Text = lastText
	if out.Text == "" {
		out.Text = "I could not complete this request, please try rephrasing."
	}
	return out, nil
}

// execute runs one tool call and renders the result as JSON for the
// transcript. Unknown tools and tool errors become error payloads the
// model can react to.
func (r *runner) execute(ctx context.Context, userID int64, call types.ToolCall, out *types.CapabilityOutput) string {
	logging.ToolsDebug("%s: executing %s(%v)", r.capability, call.Name, call.Input)

	var fn toolFunc
	for _, t := range r.tools {
		if t.def.Name == call.Name {
			fn = t.run
			break
		}
	}
	if fn == nil {
		return fmt.Sprintf(`{"status":"error","message":"unknown tool %s"}`, call.Name)
	}

	result, err := fn(ctx, userID, call.Input)
	if err != nil {
		logging.Tools("%s: tool %s failed: %v", r.capability, call.Name, err)
		return fmt.Sprintf(`{"status":"error","message":%s}`, strconv.Quote(err.Error()))
	}
	out.SourceRefs = append(out.SourceRefs, result.sources...)

	raw, err := json.Marshal(result.payload)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%s}`, strconv.Quote(err.Error()))
	}
	return string(raw)
}

// Argument coercion. Groq models sometimes pass numbers as strings and
// vice versa, so every tool reads its arguments through these.

func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func argFloat(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q is not a number: %q", key, v)
		}
		return f, nil
	case json.Number:
		return v.Float64()
	case nil:
		return 0, fmt.Errorf("argument %q is required", key)
	default:
		return 0, fmt.Errorf("argument %q has unexpected type %T", key, v)
	}
}

func argInt(args map[string]any, key string) (int64, error) {
	f, err := argFloat(args, key)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// argIntDefault reads an optional integer argument.
func argIntDefault(args map[string]any, key string, def int64) int64 {
	if _, ok := args[key]; !ok {
		return def
	}
	v, err := argInt(args, key)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// numberSchema and friends keep the tool definitions terse.

func schema(required []string, props map[string]any) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}
