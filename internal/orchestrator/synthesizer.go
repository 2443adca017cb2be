package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"finguard/internal/logging"
	"finguard/internal/types"
)

const mergeSystemPrompt = `You are a Financial Assistant. Combine the following agent responses into a single, coherent response for the user.
Be concise and helpful. Use Indian Rupees (₹) for currency.`

// Synthesizer produces the final response from the session's outputs.
// A single output is returned verbatim; multiple outputs go through the
// merge oracle.
type Synthesizer struct {
	llm types.LLMClient
}

// NewSynthesizer creates a synthesizer over the merge oracle.
func NewSynthesizer(llm types.LLMClient) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize merges the session's capability outputs.
func (s *Synthesizer) Synthesize(ctx context.Context, sess *Session) (string, error) {
	order := sess.OutputOrder()
	switch len(order) {
	case 0:
		return "", fmt.Errorf("no capability outputs to synthesize")
	case 1:
		out, _ := sess.Output(order[0])
		logging.Synth("Session %s: single output from %s, passing through", sess.ID, order[0])
		return out.Text, nil
	}

	var blocks []string
	for _, capID := range order {
		out, _ := sess.Output(capID)
		blocks = append(blocks, fmt.Sprintf("=== %s ===\n%s", strings.ToUpper(string(capID)), out.Text))
	}

	prompt := fmt.Sprintf("User query: %s\n\nAgent Responses:\n%s",
		sess.RawQuery, strings.Join(blocks, "\n\n"))

	logging.Synth("Session %s: merging %d outputs", sess.ID, len(order))
	merged, err := s.llm.CompleteWithSystem(ctx, mergeSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return merged, nil
}
