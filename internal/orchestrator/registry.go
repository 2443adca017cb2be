package orchestrator

import (
	"fmt"

	"finguard/internal/types"
)

// Registry is the static dispatch table from capability id to handler.
// Built once at process start; handlers are substitutable in tests.
type Registry struct {
	handlers map[types.Capability]types.CapabilityHandler
}

// NewRegistry builds a registry from the given handlers.
func NewRegistry(handlers ...types.CapabilityHandler) (*Registry, error) {
	r := &Registry{handlers: make(map[types.Capability]types.CapabilityHandler, len(handlers))}
	for _, h := range handlers {
		id := h.Capability()
		if !types.IsValidCapability(id) {
			return nil, fmt.Errorf("handler reports unknown capability %q", id)
		}
		if _, dup := r.handlers[id]; dup {
			return nil, fmt.Errorf("duplicate handler for capability %q", id)
		}
		r.handlers[id] = h
	}
	return r, nil
}

// Handler returns the handler for a capability id.
func (r *Registry) Handler(id types.Capability) (types.CapabilityHandler, error) {
	h, ok := r.handlers[id]
	if !ok {
		return nil, fmt.Errorf("no handler registered for capability %q", id)
	}
	return h, nil
}
