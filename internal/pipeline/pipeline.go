// Package pipeline sequences one claim evaluation run: list artifacts,
// extract evidence concurrently, resolve policy retrieval, decide.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openclaims/claimlens/internal/agent"
	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/decide"
	"github.com/openclaims/claimlens/internal/extract"
	"github.com/openclaims/claimlens/internal/llm"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
	"github.com/openclaims/claimlens/internal/retrieve"
	"github.com/openclaims/claimlens/internal/store"
	"github.com/openclaims/claimlens/internal/vectordb"
)

// Lister lists a user's artifacts. Matches store.Client.
type Lister interface {
	List(ctx context.Context, userID string) ([]model.Artifact, error)
}

// Extractor runs the concurrent extraction fan-out. Matches extract.FanOut.
type Extractor interface {
	Run(ctx context.Context, artifacts []model.Artifact) ([]model.VisionRecord, []model.DocumentRecord)
}

// RetrievalAgent resolves the policy-retrieval decision. Matches agent.Agent.
type RetrievalAgent interface {
	Retrieve(ctx context.Context, userID string, visions []model.VisionRecord, documents []model.DocumentRecord) agent.Outcome
}

// Decider produces the terminal decision. Matches decide.Engine.
type Decider interface {
	Evaluate(ctx context.Context, userID string, visions []model.VisionRecord, documents []model.DocumentRecord, chunks []model.PolicyChunk) model.ClaimDecision
}

// Pipeline orchestrates one claim job. It holds no per-job state, so a
// redelivered job recomputes from scratch; deduplication, if wanted, belongs
// to the delivery substrate.
type Pipeline struct {
	log    *logger.Logger
	store  Lister
	fanout Extractor
	agent  RetrievalAgent
	engine Decider
}

// New wires a pipeline from explicitly injected stage components.
func New(log *logger.Logger, lister Lister, fanout Extractor, retrievalAgent RetrievalAgent, engine Decider) *Pipeline {
	return &Pipeline{
		log:    log.With("component", "pipeline"),
		store:  lister,
		fanout: fanout,
		agent:  retrievalAgent,
		engine: engine,
	}
}

// Build constructs a fully wired pipeline from configuration: one model
// backend, one artifact store client and one vector index client, each
// created once here and injected into the stages that need them.
func Build(log *logger.Logger, cfg *config.Config) (*Pipeline, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create model backend: %w", err)
	}

	artifacts := store.NewClient(log, cfg.Store.BaseURL)
	search := vectordb.NewClient(log, cfg.VectorDB)
	retriever := retrieve.New(log, provider, search, cfg.Retrieval)

	fanout := extract.NewFanOut(log,
		artifacts,
		extract.NewVisionExtractor(log, provider),
		extract.NewDocumentExtractor(log, provider, cfg.Extraction.DocumentTextBudget),
	)

	return New(log,
		artifacts,
		fanout,
		agent.New(log, provider, retriever),
		decide.NewEngine(log, provider),
	), nil
}

// Run executes one claim evaluation. Only fatal-job errors cross this
// boundary (missing user identifier, zero artifacts); every other failure
// has already degraded into empty records, an empty chunk set, or the
// fail-closed decision.
func (p *Pipeline) Run(ctx context.Context, userID string) (*model.ClaimDecision, error) {
	if userID == "" {
		return nil, model.ErrMissingUserID
	}

	log := p.log.With("run_id", uuid.NewString(), "user_id", userID)
	log.Info("claim evaluation started")

	artifacts, err := p.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", userID, err)
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrNoArtifacts)
	}
	log.Info("artifacts listed", "count", len(artifacts))

	visions, documents := p.fanout.Run(ctx, artifacts)
	log.Info("extraction complete", "vision_records", len(visions), "document_records", len(documents))

	outcome := p.agent.Retrieve(ctx, userID, visions, documents)

	decision := p.engine.Evaluate(ctx, userID, visions, documents, outcome.Chunks)
	log.Info("claim evaluation finished", "decision", decision.Decision, "confidence", decision.Confidence)

	return &decision, nil
}
