package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/trustmap/internal/pipeline"
)

var (
	outJSON      string
	outMD        string
	evalOperator string
	evalTimeout  time.Duration
	noFooter     bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <case>",
	Short: "Map, fuse and classify every observation about one subject",
	Long: `Evaluate reads a case file (YAML or JSON) naming a subject and its
observations, maps each observation with its registered mapper, fuses the
resulting judgments and classifies the fused judgment:

  approve  T at or above decision.approve_threshold (default 0.7)
  review   otherwise, I at or above decision.review_threshold (default 0.5)
  reject   otherwise

Observations that fail to map are reported and left out of fusion.

Case file:
  subject: loan-4711
  operator: cawa            # optional
  observations:
    - mapper: credit-score
      value: 720
      weight: 2
    - mapper: kyc
      value: VERIFIED

Example:
  trustmap evaluate loan-4711.yaml
  trustmap evaluate loan-4711.yaml --json report.json --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	evaluateCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	evaluateCmd.Flags().StringVar(&evalOperator, "operator", "", "override the case and config operator")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 2*time.Minute, "evaluation timeout")
	evaluateCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	c, err := pipeline.LoadCase(args[0])
	if err != nil {
		return err
	}
	if evalOperator != "" {
		c.Operator = evalOperator
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	runCfg := *cfg
	runCfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter

	p, err := pipeline.NewPipeline(&runCfg, reg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	p.Renderer().SetOutput(cmd.OutOrStdout())

	report, err := p.Evaluate(ctx, c)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}

	if err := p.RenderReport(report, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	logger.Debug("report rendered", zap.String("json", outJSON), zap.String("md", outMD))
	return nil
}
