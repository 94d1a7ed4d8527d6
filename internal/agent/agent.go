// Package agent implements the retrieval-decision step: a bounded,
// single-round tool-use interaction that decides whether the claim needs
// policy text at all, and if so, what to search for.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openclaims/claimlens/internal/llm"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
)

const searchToolName = "search_policy"

// evidence excerpts are trimmed hard here; the decision engine sees the
// fuller picture later.
const agentDocumentExcerpt = 1000

const agentSystemPrompt = "You are an insurance claim triage assistant. " +
	"Decide whether evaluating this claim requires comparing it against policy text. " +
	"If it does, call " + searchToolName + " with a focused query. " +
	"If the evidence is insufficient or obviously self-contained, do not call any tool."

// ToolBackend is the tool-enabled model interface the agent drives.
type ToolBackend interface {
	CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDefinition) (*llm.ToolCompletion, error)
}

// PolicySearcher executes one policy search. Matches retrieve.Retriever.
type PolicySearcher interface {
	Search(ctx context.Context, query string, limit int, userID string) []model.PolicyChunk
}

// Outcome is the agent's resolved decision: either no retrieval was needed,
// or one or more searches ran and their union is carried forward. The agent
// is never re-consulted after seeing retrieval results.
type Outcome struct {
	RetrievalRequested bool
	Queries            []string
	Chunks             []model.PolicyChunk
}

// Agent wraps the policy retriever as a capability offered to the model.
type Agent struct {
	log       *logger.Logger
	backend   ToolBackend
	retriever PolicySearcher
}

// New creates the retrieval-decision agent.
func New(log *logger.Logger, backend ToolBackend, retriever PolicySearcher) *Agent {
	return &Agent{
		log:       log.With("component", "agent"),
		backend:   backend,
		retriever: retriever,
	}
}

type searchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Retrieve runs the single decision round over the aggregated evidence.
// A backend failure means the downstream engine proceeds with an empty
// policy set; it never aborts the pipeline.
func (a *Agent) Retrieve(ctx context.Context, userID string, visions []model.VisionRecord, documents []model.DocumentRecord) Outcome {
	completion, err := a.backend.CompleteWithTools(ctx, llm.CompletionRequest{
		System: agentSystemPrompt,
		User:   formatEvidence(visions, documents),
	}, []llm.ToolDefinition{searchToolDefinition()})
	if err != nil {
		a.log.Warn("retrieval decision failed, proceeding without policy text", "error", err)
		return Outcome{}
	}

	if len(completion.Calls) == 0 {
		a.log.Debug("agent decided no policy retrieval is needed", "user_id", userID)
		return Outcome{}
	}

	outcome := Outcome{RetrievalRequested: true}
	seen := map[string]bool{}
	for _, call := range completion.Calls {
		if call.Name != searchToolName {
			a.log.Warn("agent requested unknown tool", "tool", call.Name)
			continue
		}
		var args searchArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			a.log.Warn("unparseable tool arguments", "error", err)
			continue
		}
		query := strings.TrimSpace(args.Query)
		if query == "" {
			continue
		}

		outcome.Queries = append(outcome.Queries, query)
		for _, chunk := range a.retriever.Search(ctx, query, args.Limit, userID) {
			if seen[chunk.ID] {
				continue
			}
			seen[chunk.ID] = true
			outcome.Chunks = append(outcome.Chunks, chunk)
		}
	}

	a.log.Info("policy retrieval resolved",
		"user_id", userID,
		"queries", len(outcome.Queries),
		"chunks", len(outcome.Chunks),
	)
	return outcome
}

func searchToolDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        searchToolName,
		Description: "Search the insurance policy knowledge base for text relevant to this claim.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Free-text search query describing the policy topic to look up.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of policy chunks to return.",
				},
			},
			"required": []string{"query"},
		},
	}
}

// formatEvidence serializes the extracted records for the triage prompt.
func formatEvidence(visions []model.VisionRecord, documents []model.DocumentRecord) string {
	var b strings.Builder

	b.WriteString("Extracted claim evidence follows.\n\n## Vehicle photos\n")
	if len(visions) == 0 {
		b.WriteString("(none)\n")
	}
	for i, v := range visions {
		fmt.Fprintf(&b, "Photo %d: color=%s model=%s plate=%s damageArea=%s damage=%s\n",
			i+1, orNone(v.VehicleColor), orNone(v.VehicleModel), orNone(v.PlateNumber),
			orNone(v.DamageArea), orNone(v.DamageDescription))
	}

	b.WriteString("\n## Documents\n")
	if len(documents) == 0 {
		b.WriteString("(none)\n")
	}
	for i, d := range documents {
		fields, _ := json.Marshal(d.Fields)
		fmt.Fprintf(&b, "Document %d fields: %s\n", i+1, fields)
		if d.RawText != "" {
			excerpt := d.RawText
			if len(excerpt) > agentDocumentExcerpt {
				excerpt = excerpt[:agentDocumentExcerpt]
			}
			fmt.Fprintf(&b, "Document %d excerpt: %s\n", i+1, excerpt)
		}
	}

	b.WriteString("\nDecide whether policy text is needed to evaluate this claim.")
	return b.String()
}

func orNone(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}
