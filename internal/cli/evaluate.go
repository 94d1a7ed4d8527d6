package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
	"github.com/openclaims/claimlens/internal/pipeline"
)

var (
	outJSON string
	timeout time.Duration
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <userId>",
	Short: "Evaluate one user's insurance claim",
	Long: `Evaluate runs the full claim pipeline for a single user:
- List the user's uploaded artifacts in the claim store
- Extract structured facts from vehicle photos and claim documents
- Retrieve relevant policy text when the evidence calls for it
- Produce an approve/reject decision with confidence and reasoning

Example:
  claimlens evaluate user-4711
  claimlens evaluate user-4711 --json decision.json
  claimlens evaluate user-4711 --timeout 5m -v`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&outJSON, "json", "", "write the decision JSON to this path instead of stdout")
	evaluateCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall evaluation timeout")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	userID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Mode = "dev"
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	p, err := pipeline.Build(log, cfg)
	if err != nil {
		return err
	}

	decision, err := p.Run(ctx, userID)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", userID, err)
	}

	return writeDecision(decision, outJSON)
}

// writeDecision renders a decision as indented JSON to a file, or to
// stdout when path is empty.
func writeDecision(decision *model.ClaimDecision, path string) error {
	data, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write decision: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Decision written to %s\n", path)
	}
	return nil
}
