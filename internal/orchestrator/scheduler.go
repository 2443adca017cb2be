package orchestrator

import (
	"context"
	"fmt"

	"finguard/internal/logging"
	"finguard/internal/types"
)

// Result is what the boundary layer receives for one processed query.
type Result struct {
	SessionID  string
	Response   string
	AgentsUsed []types.Capability
	Plan       types.RouterPlan
}

// Engine wires the classifier, handler registry and synthesizer into the
// per-query state machine.
type Engine struct {
	classifier  *Classifier
	registry    *Registry
	synthesizer *Synthesizer
}

// NewEngine creates the orchestration engine.
func NewEngine(classifier *Classifier, registry *Registry, synthesizer *Synthesizer) *Engine {
	return &Engine{classifier: classifier, registry: registry, synthesizer: synthesizer}
}

// Process runs one query through ROUTING, the dispatch loop and SYNTHESIZE.
// Handler and merge-oracle errors abort the session; no retries, no partial
// synthesis.
func (e *Engine) Process(ctx context.Context, userID int64, query string) (*Result, error) {
	sess := NewSession(userID, query)
	logging.Scheduler("Session %s: %q", sess.ID, query)

	// ROUTING
	plan, err := e.classifier.Classify(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	sess.Plan = plan
	sess.State = StateDispatch

	// DISPATCH, strictly sequential in plan order.
	for {
		capID, ok := sess.next()
		if !ok {
			break
		}
		handler, err := e.registry.Handler(capID)
		if err != nil {
			return nil, err
		}

		dispatchQuery := e.dispatchQuery(sess, capID)
		logging.Scheduler("Session %s: dispatching %s (%d/%d)",
			sess.ID, capID, len(sess.Completed())+1, len(sess.Plan.Capabilities))

		out, err := handler.Invoke(ctx, userID, dispatchQuery)
		if err != nil {
			return nil, fmt.Errorf("capability %s failed: %w", capID, err)
		}
		sess.record(capID, out)
	}

	// SYNTHESIZE
	sess.State = StateSynthesize
	final, err := e.synthesizer.Synthesize(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	sess.FinalResponse = final
	sess.State = StateDone

	logging.Scheduler("Session %s done: agents=%v", sess.ID, sess.Completed())
	return &Result{
		SessionID:  sess.ID,
		Response:   sess.FinalResponse,
		AgentsUsed: sess.Completed(),
		Plan:       sess.Plan,
	}, nil
}

// dispatchQuery applies the context-injection rule: planning sees the
// transaction output when transaction has already run in this session.
// No other capability pair receives cross-context.
func (e *Engine) dispatchQuery(sess *Session, capID types.Capability) string {
	if capID != types.CapabilityPlanning {
		return sess.RawQuery
	}
	txn, ok := sess.Output(types.CapabilityTransaction)
	if !ok {
		return sess.RawQuery
	}

	logging.SchedulerDebug("Session %s: injecting transaction context into planning", sess.ID)
	return sess.RawQuery +
		"\n\n[CONTEXT: A transaction was just recorded. Details: " + txn.Text + "]\n" +
		"Your task: Check if the user has any goals related to this purchase and update goal progress if applicable. First call get_goals_status to see all goals."
}
