package config

// LLMConfig configures the LLM oracle clients.
//
// Groq exposes an OpenAI-compatible chat completions API; BaseURL can point
// at any compatible endpoint for local testing.
type LLMConfig struct {
	Provider string `yaml:"provider"` // currently "groq"
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`

	// RouterModel classifies queries into a capability plan.
	RouterModel string `yaml:"router_model"`
	// MergeModel combines multiple capability outputs into one response.
	MergeModel string `yaml:"merge_model"`
	// AgentModels maps capability id -> model used by that handler's
	// reasoning loop. Missing entries fall back to RouterModel.
	AgentModels map[string]string `yaml:"agent_models"`

	Timeout string `yaml:"timeout"`
}

// AgentModel returns the model configured for a capability id.
func (c LLMConfig) AgentModel(capability string) string {
	if m, ok := c.AgentModels[capability]; ok && m != "" {
		return m
	}
	return c.RouterModel
}
