package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finguard/internal/logging"
	"finguard/internal/types"
)

// routerSystemPrompt carries the capability taxonomy plus the routing rules.
// The agent catalog is generated from the shared capability descriptions so
// the oracle and the validator always agree on the id set.
var routerSystemPrompt = routerPromptHeader + agentCatalog() + routerPromptRules

const routerPromptHeader = `You are a Financial Assistant Router. Your job is to analyze the user's query and decide which specialist agent(s) should handle it.

AVAILABLE AGENTS:
`

func agentCatalog() string {
	var b strings.Builder
	for i, id := range types.AllCapabilities {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, id, types.CapabilityDescriptions[id])
	}
	return b.String()
}

const routerPromptRules = `
CRITICAL ROUTING RULES:
1. Select 1-3 agents based on the query
2. For simple queries, use only 1 agent
3. **DUAL-ACTION RULE**: When user mentions buying/spending/purchasing something AND mentions what it's for (e.g., "for my gaming PC", "for gaming", "for MacBook", "for vacation"):
   - ALWAYS route to BOTH ["transaction", "planning"] in that ORDER
   - transaction records the expense
   - planning updates any related goal
4. Keywords suggesting goal-related purchase: "for my", "for gaming", "towards", "bought for", "gaming PC", "MacBook", "vacation", "trip", "phone", "laptop"
5. If user just says "bought X" without mentioning purpose, use only ["transaction"]
6. If unsure, default to "analysis" for spending questions or "knowledge" for general questions

EXAMPLES:
- "I spent 15000 on graphics card for my gaming PC" -> ["transaction", "planning"] (dual-action: expense + goal)
- "How much did I spend on food?" -> ["analysis"]
- "Set a budget of 5000 for shopping" -> ["planning"]
- "What is mutual fund?" -> ["knowledge"]
- "Add 5000 to my MacBook goal" -> ["planning"]
- "I bought a laptop for 80000" -> ["transaction"] (no goal mentioned)
- "paid 5000 for my Bali trip" -> ["transaction", "planning"] (trip goal likely exists)

OUTPUT FORMAT (JSON only):
{"agents_to_call": ["transaction", "planning"], "reasoning": "User bought something for a goal"}`

// fallbackReasoning is attached to the default plan when the oracle's
// reply cannot be decoded.
const fallbackReasoning = "Fallback to analysis due to parsing error"

// Classifier turns a raw query into a validated capability plan.
type Classifier struct {
	llm types.LLMClient
}

// NewClassifier creates a classifier over the routing oracle.
func NewClassifier(llm types.LLMClient) *Classifier {
	return &Classifier{llm: llm}
}

type routerReply struct {
	AgentsToCall []string `json:"agents_to_call"`
	Reasoning    string   `json:"reasoning"`
}

// Classify asks the routing oracle for a plan. Decode failures and empty
// plans fall back to [analysis]; oracle transport errors propagate.
func (c *Classifier) Classify(ctx context.Context, query string) (types.RouterPlan, error) {
	raw, err := c.llm.CompleteWithSystem(ctx, routerSystemPrompt, "User query: "+query)
	if err != nil {
		return types.RouterPlan{}, err
	}

	var reply routerReply
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &reply); err != nil || reply.AgentsToCall == nil {
		logging.Router("Unparsable routing reply, falling back to analysis: %.120s", raw)
		return defaultPlan(), nil
	}

	plan := validatePlan(reply.AgentsToCall, reply.Reasoning)
	logging.Router("Plan: %v (%s)", plan.Capabilities, plan.Reasoning)
	return plan, nil
}

func defaultPlan() types.RouterPlan {
	return types.RouterPlan{
		Capabilities: []types.Capability{types.CapabilityAnalysis},
		Reasoning:    fallbackReasoning,
	}
}

// validatePlan filters ids to the fixed capability set, preserving the
// oracle's order, dropping repeats and capping the length. The order itself
// is trusted as-is.
func validatePlan(ids []string, reasoning string) types.RouterPlan {
	seen := make(map[types.Capability]bool, len(ids))
	var caps []types.Capability
	for _, id := range ids {
		capID := types.Capability(strings.TrimSpace(id))
		if !types.IsValidCapability(capID) {
			logging.RouterDebug("Dropping unknown capability id %q", id)
			continue
		}
		if seen[capID] {
			continue
		}
		seen[capID] = true
		caps = append(caps, capID)
		if len(caps) == types.MaxPlanLength {
			break
		}
	}
	if len(caps) == 0 {
		return defaultPlan()
	}
	return types.RouterPlan{Capabilities: caps, Reasoning: reasoning}
}

// stripCodeFences unwraps a markdown fenced block so the JSON inside can
// be decoded. Replies without fences pass through trimmed.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		// Drop a language tag like "json" on the fence line.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			first := strings.TrimSpace(s[:nl])
			if first != "" && !strings.ContainsAny(first, "{}[]") {
				s = s[nl+1:]
			}
		}
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}
