package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/trustmap/internal/fusion"
	"github.com/ppiankov/trustmap/internal/mapper"
	"github.com/ppiankov/trustmap/internal/model"
)

var (
	applyOut    string
	applyWithID bool

	fuseWeights  []float64
	fuseOperator string
	fuseOut      string
	fuseExplain  bool

	verifyWeights []float64
)

// applyCmd maps one raw value
var applyCmd = &cobra.Command{
	Use:   "apply <mapper> <value>",
	Short: "Map one raw value to a judgment",
	Long: `Apply looks up a registered mapper and maps one raw value to a
neutrosophic judgment, printed as JSON.

Numerical mappers take a number, categorical mappers a label and boolean
mappers one of true/false, yes/no, 1/0, on/off, valid/invalid.

Example:
  trustmap apply server-room-temp 24.5
  trustmap apply kyc VERIFIED --with-id --out kyc.json`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	m, err := reg.Get(args[0])
	if err != nil {
		return err
	}
	v, err := mapper.ParseValue(m.Type(), args[1])
	if err != nil {
		return err
	}
	j, err := m.Apply(v)
	if err != nil {
		return err
	}
	if applyWithID {
		if j, err = fusion.EnsureID(j, time.Now()); err != nil {
			return err
		}
	}

	logger.Debug("value mapped", zap.String("mapper", m.ID()), zap.String("value", args[1]), zap.Stringer("triple", j.Triple()))
	return writeJudgment(cmd, applyOut, j)
}

// fuseCmd fuses judgment files
var fuseCmd = &cobra.Command{
	Use:   "fuse <judgment.json>...",
	Short: "Fuse judgments from independent sources",
	Long: `Fuse reads judgment documents and combines them into one.

Operators:
  cawa         conflict-aware weighted average (default): disagreement on
               polarity (T-F) moves mass from T and F into I
  optimistic   highest T, lowest F
  pessimistic  lowest T, highest F

Weights apply to cawa only and are normalized; omit them for equal weights.

Example:
  trustmap fuse a.json b.json c.json --weights 0.5,0.3,0.2
  trustmap fuse a.json b.json --operator pessimistic --out fused.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFuse,
}

func runFuse(cmd *cobra.Command, args []string) error {
	judgments, err := readJudgments(args)
	if err != nil {
		return err
	}

	name := fuseOperator
	if name == "" {
		name = cfg.Fusion.Operator
	}
	op, err := fusion.ParseOperator(name)
	if err != nil {
		return err
	}
	engine, err := fusion.NewEngine(fusion.WithSensitivity(cfg.Fusion.Sensitivity))
	if err != nil {
		return err
	}

	weights := fuseWeights
	if len(weights) == 0 {
		weights = uniform(len(judgments))
	}

	fused, diag, err := engine.Combine(op, judgments, weights)
	if err != nil {
		return err
	}

	if fuseExplain {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "Operator:  %s over %d inputs\n", diag.Operator, diag.Inputs)
		fmt.Fprintf(errOut, "Weights:   %v\n", diag.Weights)
		fmt.Fprintf(errOut, "Naive:     %s\n", diag.Naive)
		fmt.Fprintf(errOut, "Conflict:  %.4f (shift %.4f)\n", diag.Conflict, diag.Shift)
		fmt.Fprintf(errOut, "Formula:   %s\n", diag.Formula)
		fmt.Fprintf(errOut, "Fused:     %s\n\n", fused.Triple())
	}

	logger.Info("judgments fused", zap.String("operator", diag.Operator), zap.Int("inputs", diag.Inputs), zap.String("id", fused.ID()))
	return writeJudgment(cmd, fuseOut, fused)
}

// verifyCmd checks a conformance seal
var verifyCmd = &cobra.Command{
	Use:   "verify <fused.json> <input.json>...",
	Short: "Verify the conformance seal of a fused judgment",
	Long: `Verify recomputes the conformance seal of a fused judgment from the
input judgments (in the original order) and compares it to the recorded
seal. When --weights is omitted, the weights recorded in the fused
judgment's provenance are used.

Example:
  trustmap verify fused.json a.json b.json c.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	judgments, err := readJudgments(args)
	if err != nil {
		return err
	}
	fused, inputs := judgments[0], judgments[1:]

	weights := verifyWeights
	if len(weights) == 0 {
		weights = recordedWeights(fused)
	}

	ok, err := fusion.VerifySeal(fused, inputs, weights)
	if err != nil {
		return err
	}
	if !ok {
		return model.ValidationError("conformance seal of %s does not match its inputs", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Seal verified: %s\n", fused.Provenance().Last().String(model.KeyConformanceSeal))
	return nil
}

// recordedWeights reads the weights stored in the fused judgment's operator entry
func recordedWeights(j model.Judgment) []float64 {
	var raw []any
	switch w := j.Provenance().Last()[fusion.KeyWeights].(type) {
	case []float64:
		return w
	case []any:
		raw = w
	default:
		return nil
	}
	weights := make([]float64, 0, len(raw))
	for _, w := range raw {
		f, ok := w.(float64)
		if !ok {
			return nil
		}
		weights = append(weights, f)
	}
	return weights
}

func readJudgments(paths []string) ([]model.Judgment, error) {
	judgments := make([]model.Judgment, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read judgment: %w", err)
		}
		j, err := model.ParseJudgment(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		judgments = append(judgments, j)
	}
	return judgments, nil
}

func writeJudgment(cmd *cobra.Command, path string, j model.Judgment) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal judgment: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), path, append(data, '\n'))
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func init() {
	rootCmd.AddCommand(applyCmd, fuseCmd, verifyCmd)

	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "output path (default: stdout)")
	applyCmd.Flags().BoolVar(&applyWithID, "with-id", false, "append a judgment id entry")

	fuseCmd.Flags().Float64SliceVarP(&fuseWeights, "weights", "w", nil, "comma-separated weights, one per judgment")
	fuseCmd.Flags().StringVar(&fuseOperator, "operator", "", "cawa, optimistic or pessimistic (default: fusion.operator)")
	fuseCmd.Flags().StringVarP(&fuseOut, "out", "o", "", "output path (default: stdout)")
	fuseCmd.Flags().BoolVar(&fuseExplain, "explain", false, "print fusion diagnostics to stderr")

	verifyCmd.Flags().Float64SliceVarP(&verifyWeights, "weights", "w", nil, "weights used for fusion (default: recorded weights)")
}
