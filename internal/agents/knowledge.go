package agents

import (
	"context"
	"fmt"

	"finguard/internal/knowledge"
	"finguard/internal/types"
)

const knowledgeSystemPrompt = `You are a Financial Knowledge Expert for India.

You have ONE tool: search_knowledge_base
- Use it to search for ANY financial topic
- Pass the user's question as the query parameter

WORKFLOW:
1. Call search_knowledge_base with the user's question
2. Read the returned context
3. Answer based ONLY on the context provided
4. If no results found, say you don't have that information

RULES:
- Always search before answering
- Use ₹ for Indian Rupees
- Be accurate - cite sources when available
- Keep answers concise but complete`

type knowledgeSearchResult struct {
	Status  string   `json:"status"`
	Query   string   `json:"query"`
	Count   int      `json:"count"`
	Context string   `json:"context,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Message string   `json:"message,omitempty"`
}

// NewKnowledgeHandler builds the RAG handler over the local knowledge base.
func NewKnowledgeHandler(llm types.LLMClient, base *knowledge.Base) types.CapabilityHandler {
	return &runner{
		capability:   types.CapabilityKnowledge,
		llm:          llm,
		systemPrompt: knowledgeSystemPrompt,
		tools: []tool{
			{
				def: types.ToolDefinition{
					Name:        "search_knowledge_base",
					Description: "Search the financial knowledge base for relevant information about any financial topic: taxes, investments, banking, insurance, loans, etc.",
					InputSchema: schema([]string{"query"}, map[string]any{
						"query": prop("string", "The question or topic to search for"),
					}),
				},
				run: func(ctx context.Context, _ int64, args map[string]any) (toolResult, error) {
					query := argString(args, "query")
					if query == "" {
						return toolResult{}, fmt.Errorf("query is required")
					}

					results, err := base.Search(ctx, query, 3)
					if err != nil {
						return toolResult{}, err
					}
					if len(results) == 0 {
						return toolResult{payload: knowledgeSearchResult{
							Status:  "no_results",
							Query:   query,
							Message: fmt.Sprintf("No relevant information found for: %s", query),
						}}, nil
					}

					context := ""
					var sources []string
					seen := map[string]bool{}
					for _, r := range results {
						if context != "" {
							context += "\n\n---\n\n"
						}
						context += r.Content
						if !seen[r.Source] {
							seen[r.Source] = true
							sources = append(sources, r.Source)
						}
					}

					return toolResult{
						payload: knowledgeSearchResult{
							Status:  "success",
							Query:   query,
							Count:   len(results),
							Context: context,
							Sources: sources,
						},
						sources: sources,
					}, nil
				},
			},
		},
	}
}
