package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openclaims/claimlens/internal/model"
)

// Evaluator runs one claim evaluation. Matches pipeline.Pipeline.
type Evaluator interface {
	Run(ctx context.Context, userID string) (*model.ClaimDecision, error)
}

// EvalJob evaluates a single user's claim.
type EvalJob struct {
	UserID    string
	Evaluator Evaluator
}

// Execute runs the evaluation and wraps the outcome.
func (j *EvalJob) Execute(ctx context.Context) Result {
	decision, err := j.Evaluator.Run(ctx, j.UserID)
	return &EvalResult{
		UserID:   j.UserID,
		Decision: decision,
		Error:    err,
	}
}

// EvalResult is the per-job outcome of a batch run. Error is non-nil only
// for fatal job errors; degraded evaluations still carry a decision.
type EvalResult struct {
	UserID   string
	Decision *model.ClaimDecision
	Error    error
}

// GetError returns the evaluation error, if any.
func (r *EvalResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates many claim jobs concurrently. One job's failure
// never stops the rest of the batch.
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// ProcessUsers evaluates the given users concurrently and returns one
// result per user, in completion order.
func (b *BatchProcessor) ProcessUsers(ctx context.Context, userIDs []string) []*EvalResult {
	if len(userIDs) == 0 {
		return []*EvalResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	// Submit from a separate goroutine so Wait drains results while jobs
	// are still being enqueued; batches larger than the channel buffers
	// would otherwise block Submit forever.
	go func() {
		for _, userID := range userIDs {
			pool.Submit(&EvalJob{
				UserID:    userID,
				Evaluator: b.evaluator,
			})
		}
		pool.Close()
	}()

	results := pool.Wait()

	evalResults := make([]*EvalResult, len(results))
	for i, result := range results {
		evalResults[i] = result.(*EvalResult)
	}

	return evalResults
}

// ProcessFile reads claim jobs from a file and evaluates them. Malformed
// message lines become failed results alongside the evaluated ones; they
// never abort the batch.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*EvalResult, error) {
	userIDs, failures, err := ReadMessagesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}

	return append(b.ProcessUsers(ctx, userIDs), failures...), nil
}

// ReadMessagesFromFile reads one claim job per line. A line is either a bare
// user identifier or a JSON job message ({"userId": ...} / {"user_id": ...}).
// Blank lines and # comments are skipped; duplicate users are evaluated once.
// A malformed message line is returned as a failed result, not an error.
func ReadMessagesFromFile(filePath string) ([]string, []*EvalResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var (
		userIDs  []string
		failures []*EvalResult
	)
	seen := make(map[string]bool)
	lineNo := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		userID := line
		if strings.HasPrefix(line, "{") {
			msg, err := model.ParseJobMessage([]byte(line))
			if err != nil {
				failures = append(failures, &EvalResult{
					Error: fmt.Errorf("line %d: %w", lineNo, err),
				})
				continue
			}
			userID = msg.UserID
		}

		if !seen[userID] {
			seen[userID] = true
			userIDs = append(userIDs, userID)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan file: %w", err)
	}

	return userIDs, failures, nil
}
