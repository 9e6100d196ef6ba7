package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trustmap/internal/model"
	"github.com/ppiankov/trustmap/internal/worker"
)

var (
	concurrency  int
	ratePerMap   float64
	burst        int
	batchOut     string
	batchTimeout time.Duration
)

// batchResult is one line of batch output
type batchResult struct {
	Index    int             `json:"index"`
	Mapper   string          `json:"mapper"`
	Value    string          `json:"value"`
	Weight   float64         `json:"weight"`
	Judgment *model.Judgment `json:"judgment,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Map many observations from a file in parallel",
	Long: `Batch maps every observation in a file concurrently:
- Read observations (one per line: mapper_id value [weight], # comments)
- Map them in parallel with a configurable worker count
- Optionally throttle each mapper to a rate (--rate, --burst)
- Stamp one run id into every produced judgment's provenance

Results keep the order of the input file and are written as a JSON array.

Example:
  trustmap batch readings.txt
  trustmap batch readings.txt --concurrency 8 --out judgments.json
  trustmap batch readings.txt --rate 10 --burst 2 --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().Float64Var(&ratePerMap, "rate", 0, "applications per second per mapper, 0 for unlimited (default: concurrency.rate_per_mapper)")
	batchCmd.Flags().IntVar(&burst, "burst", 0, "burst size for --rate (default: concurrency.burst)")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "output path (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	workers := cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}
	rate, burstSize := cfg.Concurrency.RatePerMapper, cfg.Concurrency.Burst
	if cmd.Flags().Changed("rate") {
		rate = ratePerMap
	}
	if burst > 0 {
		burstSize = burst
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  trustmap batch\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Input file:   %s\n", file)
	fmt.Fprintf(errOut, "  Workers:      %d\n", workers)
	if rate > 0 {
		fmt.Fprintf(errOut, "  Rate:         %g/s per mapper (burst %d)\n", rate, burstSize)
	}
	fmt.Fprintf(errOut, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(errOut, "\n")

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(reg, workers, rate, burstSize).WithLogger(logger)
	batch, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	results := make([]batchResult, len(batch.Results))
	for i, r := range batch.Results {
		results[i] = batchResult{
			Index:  r.Index,
			Mapper: r.Observation.Mapper,
			Value:  r.Observation.Value,
			Weight: r.Observation.EffectiveWeight(),
		}
		if r.Error != nil {
			results[i].Error = r.Error.Error()
			fmt.Fprintf(errOut, "✗ %s %s: %v\n", r.Observation.Mapper, r.Observation.Value, r.Error)
			continue
		}
		j := r.Judgment
		results[i].Judgment = &j
		if verbose {
			fmt.Fprintf(errOut, "✓ %s %s → %s\n", r.Observation.Mapper, r.Observation.Value, j.Triple())
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := writeOutput(cmd.OutOrStdout(), batchOut, append(data, '\n')); err != nil {
		return err
	}

	failed := batch.Failed()
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Run:       %s\n", batch.RunID)
	fmt.Fprintf(errOut, "  Total:     %d observations\n", len(batch.Results))
	fmt.Fprintf(errOut, "  Mapped:    %d\n", len(batch.Results)-failed)
	fmt.Fprintf(errOut, "  Failures:  %d\n", failed)
	if batchOut != "" {
		fmt.Fprintf(errOut, "  Output:    %s\n", batchOut)
	}
	fmt.Fprintf(errOut, "\n")

	if failed > 0 && failed == len(batch.Results) {
		return fmt.Errorf("no observation in %s could be mapped", file)
	}
	return nil
}
