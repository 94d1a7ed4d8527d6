package model

import (
	"math"
	"strings"
)

// Decision is the terminal verdict for a claim.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// ClaimDecision is the sole externally meaningful output of a pipeline run.
// A caller always receives either a well-formed ClaimDecision or an explicit
// job failure, never a partially-filled decision.
type ClaimDecision struct {
	Decision         Decision `json:"decision"`
	Confidence       int      `json:"confidence"` // always within [0,100]
	Reasoning        string   `json:"reasoning"`
	PolicyReferences []string `json:"policyReferences"`
	KeyFactors       []string `json:"keyFactors"`
}

// FailClosedDecision is the built-in safe default returned when the model's
// output cannot be parsed or trusted. An unparseable decision must never be
// silently treated as an approval.
func FailClosedDecision() ClaimDecision {
	return ClaimDecision{
		Decision:         DecisionRejected,
		Confidence:       0,
		Reasoning:        "An error occurred while evaluating the claim. The claim is rejected pending manual review.",
		PolicyReferences: []string{},
		KeyFactors:       []string{"Evaluation error occurred"},
	}
}

// NormalizeDecision maps a raw model label onto the Decision enum.
// Anything that is not recognizably an approval is a rejection.
func NormalizeDecision(raw string) Decision {
	if strings.EqualFold(strings.TrimSpace(raw), string(DecisionApproved)) {
		return DecisionApproved
	}
	return DecisionRejected
}

// ClampConfidence forces a raw model confidence into [0,100]. NaN maps to 0:
// an unordered value would slip past both range comparisons and int() would
// store garbage.
func ClampConfidence(raw float64) int {
	switch {
	case math.IsNaN(raw), raw < 0:
		return 0
	case raw > 100:
		return 100
	default:
		return int(raw)
	}
}
