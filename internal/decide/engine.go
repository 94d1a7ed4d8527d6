// Package decide implements the claim decision engine: one deterministic
// model call over all the evidence, validated into a fixed decision schema
// with a fail-closed default.
package decide

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openclaims/claimlens/internal/jsonx"
	"github.com/openclaims/claimlens/internal/llm"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
)

// Prompt excerpt budgets for the decision call.
const (
	documentExcerptChars = 2000
	policyExcerptChars   = 1500
)

const decisionSystemPrompt = "You are an insurance claim adjudicator. " +
	"Evaluate the claim strictly from the supplied evidence and policy text. " +
	"Respond with a single JSON object and nothing else."

const decisionInstruction = `Based on the evidence above, decide the claim.

Return a JSON object with exactly these keys:
{
  "decision": "Approved" or "Rejected",
  "confidence": number between 0 and 100,
  "reasoning": string,
  "policyReferences": array of strings,
  "keyFactors": array of strings
}`

// Backend is the single-call model interface the engine uses.
type Backend interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Engine produces the terminal ClaimDecision for a job.
type Engine struct {
	log     *logger.Logger
	backend Backend
}

// NewEngine creates a decision engine.
func NewEngine(log *logger.Logger, backend Backend) *Engine {
	return &Engine{
		log:     log.With("component", "decide"),
		backend: backend,
	}
}

// Evaluate makes the decision call at temperature zero so identical inputs
// reproduce identical outputs — a compliance requirement. It never returns
// an error: an untrustworthy response becomes the fail-closed default
// (Rejected, confidence 0), because an unparseable decision must never be
// silently treated as an approval. The engine holds no state, so a
// redelivered job recomputes safely from scratch.
func (e *Engine) Evaluate(ctx context.Context, userID string, visions []model.VisionRecord, documents []model.DocumentRecord, chunks []model.PolicyChunk) model.ClaimDecision {
	raw, err := e.backend.Complete(ctx, llm.CompletionRequest{
		System:      decisionSystemPrompt,
		User:        buildPrompt(userID, visions, documents, chunks),
		Temperature: 0,
	})
	if err != nil {
		e.log.Error("decision call failed, failing closed", "user_id", userID, "error", err)
		return model.FailClosedDecision()
	}

	obj, err := jsonx.ExtractObject(raw)
	if err != nil {
		e.log.Error("decision response unparseable, failing closed", "user_id", userID, "error", err)
		return model.FailClosedDecision()
	}

	decision := model.ClaimDecision{
		Decision:         model.NormalizeDecision(jsonx.String(obj, "decision")),
		Reasoning:        jsonx.String(obj, "reasoning"),
		PolicyReferences: jsonx.StringSlice(obj, "policyReferences"),
		KeyFactors:       jsonx.StringSlice(obj, "keyFactors"),
	}
	if confidence, ok := jsonx.Number(obj, "confidence"); ok {
		decision.Confidence = model.ClampConfidence(confidence)
	}

	e.log.Info("claim decided",
		"user_id", userID,
		"decision", decision.Decision,
		"confidence", decision.Confidence,
	)
	return decision
}

// buildPrompt serializes all evidence into the fixed, human-readable prompt
// structure: vision findings, document extractions, policy text, then the
// decision instruction.
func buildPrompt(userID string, visions []model.VisionRecord, documents []model.DocumentRecord, chunks []model.PolicyChunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Insurance claim evaluation for user %s.\n", userID)

	b.WriteString("\n## Vision findings\n")
	if len(visions) == 0 {
		b.WriteString("No vehicle photos were provided.\n")
	}
	for i, v := range visions {
		fmt.Fprintf(&b, "Photo %d:\n", i+1)
		writeField(&b, "Vehicle color", v.VehicleColor)
		writeField(&b, "Vehicle model", v.VehicleModel)
		writeField(&b, "Plate number", v.PlateNumber)
		writeField(&b, "Damage area", v.DamageArea)
		writeField(&b, "Damage description", v.DamageDescription)
	}

	b.WriteString("\n## Document extractions\n")
	if len(documents) == 0 {
		b.WriteString("No documents were provided.\n")
	}
	for i, d := range documents {
		fields, _ := json.Marshal(d.Fields)
		fmt.Fprintf(&b, "Document %d fields: %s\n", i+1, fields)
		if d.RawText != "" {
			fmt.Fprintf(&b, "Document %d text: %s\n", i+1, excerpt(d.RawText, documentExcerptChars))
		}
	}

	b.WriteString("\n## Relevant policy text\n")
	if len(chunks) == 0 {
		b.WriteString("No policy text was retrieved for this claim.\n")
	}
	for i, c := range chunks {
		meta, _ := json.Marshal(c.Metadata)
		fmt.Fprintf(&b, "Policy chunk %d (id=%s, score=%.3f, metadata=%s):\n%s\n",
			i+1, c.ID, c.Score, meta, excerpt(c.Content, policyExcerptChars))
	}

	b.WriteString("\n")
	b.WriteString(decisionInstruction)
	return b.String()
}

func writeField(b *strings.Builder, label string, value *string) {
	if value == nil {
		fmt.Fprintf(b, "- %s: not determined\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, *value)
}

// excerpt caps s at limit bytes, backing off to a rune boundary so a
// multi-byte rune is never split into the prompt.
func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
