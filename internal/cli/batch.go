package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/pipeline"
	"github.com/openclaims/claimlens/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Evaluate claims for multiple users from a file in parallel",
	Long: `Batch evaluates many users concurrently:
- Read jobs from the input file: one per line, either a bare user id or a
  JSON message like {"userId":"..."} (# comments allowed)
- Evaluate claims in parallel with a configurable worker count
- Write one decision JSON per user into the output directory
- One user's failure never stops the rest of the batch

Example:
  claimlens batch users.txt
  claimlens batch users.txt --concurrency 8 --output-dir ./decisions
  claimlens batch users.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: config batch_workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimlens-decisions", "output directory for decision files")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.BatchWorkers
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.Build(log, cfg)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(p, concurrency)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			label := result.UserID
			if label == "" {
				label = "(invalid message)"
			}
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", label, result.Error)
			continue
		}

		path := filepath.Join(outputDir, result.UserID+".json")
		if err := writeDecision(result.Decision, path); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", result.UserID, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "OK   %s: %s (confidence %d)\n",
			result.UserID, result.Decision.Decision, result.Decision.Confidence)
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d users, %d ok, %d failed, output %s\n",
		len(results), successCount, failureCount, outputDir)

	if failureCount > 0 {
		return fmt.Errorf("%d of %d evaluations failed", failureCount, len(results))
	}
	return nil
}
