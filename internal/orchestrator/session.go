// Package orchestrator implements the query orchestration engine: the
// classifier that turns a free-text query into an ordered capability plan,
// the scheduler that walks the plan one dispatch at a time, and the
// synthesizer that merges capability outputs into the final response.
package orchestrator

import (
	"github.com/google/uuid"

	"finguard/internal/types"
)

// State of the per-query state machine.
type State string

const (
	StateRouting    State = "ROUTING"
	StateDispatch   State = "DISPATCH"
	StateSynthesize State = "SYNTHESIZE"
	StateDone       State = "DONE"
)

// Session is the per-query accumulator. One is created per incoming query
// and discarded once the final response is produced; it is never persisted
// and never shared between queries.
type Session struct {
	ID       string
	UserID   int64
	RawQuery string

	State     State
	Plan      types.RouterPlan
	cursor    int
	completed []types.Capability

	// outputs preserves insertion order; ≤ 1 entry per capability.
	outputKeys []types.Capability
	outputs    map[types.Capability]*types.CapabilityOutput

	FinalResponse string
}

// NewSession creates a session in the ROUTING state.
func NewSession(userID int64, rawQuery string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		RawQuery: rawQuery,
		State:    StateRouting,
		outputs:  make(map[types.Capability]*types.CapabilityOutput),
	}
}

// Pending returns the capabilities not yet dispatched, in plan order.
func (s *Session) Pending() []types.Capability {
	return s.Plan.Capabilities[s.cursor:]
}

// Completed returns the capabilities dispatched so far, in dispatch order.
func (s *Session) Completed() []types.Capability {
	return s.completed
}

// next returns the capability at the cursor without advancing.
func (s *Session) next() (types.Capability, bool) {
	if s.cursor >= len(s.Plan.Capabilities) {
		return "", false
	}
	return s.Plan.Capabilities[s.cursor], true
}

// record stores a capability's output and advances the cursor.
func (s *Session) record(capID types.Capability, out *types.CapabilityOutput) {
	if _, seen := s.outputs[capID]; !seen {
		s.outputKeys = append(s.outputKeys, capID)
	}
	s.outputs[capID] = out
	s.completed = append(s.completed, capID)
	s.cursor++
}

// Output returns the recorded output for a capability, if any.
func (s *Session) Output(capID types.Capability) (*types.CapabilityOutput, bool) {
	out, ok := s.outputs[capID]
	return out, ok
}

// OutputOrder returns the capabilities that produced output, in insertion
// order.
func (s *Session) OutputOrder() []types.Capability {
	return s.outputKeys
}
