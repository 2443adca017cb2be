// Package types holds the shared data model and interfaces for FinGuard.
// Kept dependency-free so every layer can import it without cycles.
package types

// Capability identifies one of the four fixed specialist handlers.
type Capability string

const (
	CapabilityAnalysis    Capability = "analysis"
	CapabilityKnowledge   Capability = "knowledge"
	CapabilityPlanning    Capability = "planning"
	CapabilityTransaction Capability = "transaction"
)

// AllCapabilities lists the fixed capability set in canonical order.
var AllCapabilities = []Capability{
	CapabilityAnalysis,
	CapabilityKnowledge,
	CapabilityPlanning,
	CapabilityTransaction,
}

// IsValidCapability reports whether id is one of the four fixed capabilities.
func IsValidCapability(id Capability) bool {
	switch id {
	case CapabilityAnalysis, CapabilityKnowledge, CapabilityPlanning, CapabilityTransaction:
		return true
	}
	return false
}

// CapabilityDescriptions feed the classification oracle's taxonomy.
var CapabilityDescriptions = map[Capability]string{
	CapabilityAnalysis:    "Analyzes spending patterns, detects anomalies, forecasts balance. Use for: 'how much did I spend', 'unusual transactions', 'predict my balance'",
	CapabilityKnowledge:   "Answers financial knowledge questions from a knowledge base. Use for: 'what is SIP', 'explain 80C', 'how does UPI work'",
	CapabilityPlanning:    "Manages budgets and savings goals. Use for: 'set budget', 'create goal', 'check my budgets'",
	CapabilityTransaction: "Records manual transactions and reports liabilities. Use for: 'add expense', 'show my loans', 'financial snapshot'",
}

// RouterPlan is the validated outcome of query classification: an ordered,
// deduplicated list of capabilities (1 to 3 entries) plus the oracle's stated
// reasoning. The plan is fixed once produced and never mutated.
type RouterPlan struct {
	Capabilities []Capability
	Reasoning    string
}

// CapabilityOutput is the immutable result of one capability dispatch.
type CapabilityOutput struct {
	Text            string
	InvokedSubTools []string
	SourceRefs      []string
	MessageCount    int
}

// MaxPlanLength bounds how many capabilities a single plan may contain.
const MaxPlanLength = 3
