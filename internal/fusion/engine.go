// Package fusion combines judgments from independent sources into one.
//
// The primary operator is a conflict-aware weighted average (CAWA): sources
// are averaged by weight, then mass is moved from T and F into I in
// proportion to how strongly the sources disagree on polarity (T-F).
// Optimistic and pessimistic operators pick the extremes instead.
//
// Every fused judgment carries the concatenated input chains followed by one
// operator entry holding a conformance seal and a content-derived judgment id.
package fusion

import (
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/trustmap/internal/model"
)

// Operator selects a fusion strategy
type Operator string

const (
	OperatorCAWA        Operator = "cawa"
	OperatorOptimistic  Operator = "optimistic"
	OperatorPessimistic Operator = "pessimistic"
)

// Operator ids recorded in provenance
const (
	CAWAOperatorID        = "cawa-v1"
	OptimisticOperatorID  = "optimistic-v1"
	PessimisticOperatorID = "pessimistic-v1"
)

// Formulas reported in diagnostics
const (
	cawaFormula        = "C = sum(w*|p - mean(p)|), p = T-F; T = T'(1-sC), F = F'(1-sC), I = I' + sC(T'+F')"
	optimisticFormula  = "T = max(T), F = min(F), I = 1-T-F"
	pessimisticFormula = "F = max(F), T = min(T), I = 1-T-F"
)

// Provenance keys written by the fusion entry
const (
	KeyInputCount = "input_count"
	KeyInputs     = "inputs"
	KeyWeights    = "weights"
	KeyConflict   = "conflict"
)

// ParseOperator validates an operator name
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OperatorCAWA, OperatorOptimistic, OperatorPessimistic:
		return op, nil
	case "":
		return OperatorCAWA, nil
	}
	return "", model.ArgumentError("unknown fusion operator %q (expected cawa, optimistic or pessimistic)", s)
}

// Engine performs fusion. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	sensitivity float64
	clock       func() time.Time
	operatorID  string
}

// Option configures an Engine
type Option func(*Engine)

// WithSensitivity sets the share of conflict moved into I, in [0,1] (default 1)
func WithSensitivity(s float64) Option {
	return func(e *Engine) { e.sensitivity = s }
}

// WithClock overrides the time source used for provenance timestamps
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithOperatorID overrides the operator id recorded by Fuse
func WithOperatorID(id string) Option {
	return func(e *Engine) { e.operatorID = id }
}

// NewEngine creates a fusion engine
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		sensitivity: 1.0,
		clock:       func() time.Time { return time.Now().UTC() },
		operatorID:  CAWAOperatorID,
	}
	for _, opt := range opts {
		opt(e)
	}

	if math.IsNaN(e.sensitivity) || e.sensitivity < 0 || e.sensitivity > 1 {
		return nil, model.ArgumentError("sensitivity must be within [0,1], got %g", e.sensitivity)
	}
	if e.operatorID == "" {
		return nil, model.ArgumentError("operator id must not be empty")
	}
	return e, nil
}

// Sensitivity returns the configured conflict sensitivity
func (e *Engine) Sensitivity() float64 { return e.sensitivity }

// Fuse combines judgments with the conflict-aware weighted average
func (e *Engine) Fuse(judgments []model.Judgment, weights []float64) (model.Judgment, error) {
	j, _, err := e.FuseDetailed(judgments, weights)
	return j, err
}

// FuseDetailed is Fuse plus the intermediate values of the computation
func (e *Engine) FuseDetailed(judgments []model.Judgment, weights []float64) (model.Judgment, model.FusionDiagnostics, error) {
	if len(judgments) == 0 {
		return model.Judgment{}, model.FusionDiagnostics{}, model.ArgumentError("cannot fuse an empty list of judgments")
	}
	if len(weights) != len(judgments) {
		return model.Judgment{}, model.FusionDiagnostics{}, model.ArgumentError("got %d judgments but %d weights", len(judgments), len(weights))
	}
	w, err := normalizeWeights(weights)
	if err != nil {
		return model.Judgment{}, model.FusionDiagnostics{}, err
	}

	// Naive weighted average and mean polarity
	var naive model.Triple
	var meanPolarity float64
	for i, j := range judgments {
		naive.T += w[i] * j.T()
		naive.I += w[i] * j.I()
		naive.F += w[i] * j.F()
		meanPolarity += w[i] * (j.T() - j.F())
	}

	var conflict float64
	for i, j := range judgments {
		conflict += w[i] * math.Abs((j.T()-j.F())-meanPolarity)
	}
	conflict = clampUnit(conflict)

	shift := e.sensitivity * conflict
	fused := model.Triple{
		T: naive.T * (1 - shift),
		I: naive.I + shift*(naive.T+naive.F),
		F: naive.F * (1 - shift),
	}
	fused = renormalize(fused)

	diag := model.FusionDiagnostics{
		Operator: e.operatorID,
		Inputs:   len(judgments),
		Weights:  w,
		Naive:    naive,
		Conflict: conflict,
		Shift:    shift,
		Formula:  cawaFormula,
	}

	out, err := e.finish(e.operatorID, fused, judgments, weights, map[string]any{KeyConflict: conflict})
	if err != nil {
		return model.Judgment{}, model.FusionDiagnostics{}, err
	}
	return out, diag, nil
}

// Optimistic takes the most favourable view: T = max T_i, F = min F_i
func (e *Engine) Optimistic(judgments []model.Judgment) (model.Judgment, error) {
	j, _, err := e.extreme(judgments, true)
	return j, err
}

// Pessimistic takes the least favourable view: F = max F_i, T = min T_i
func (e *Engine) Pessimistic(judgments []model.Judgment) (model.Judgment, error) {
	j, _, err := e.extreme(judgments, false)
	return j, err
}

// Combine dispatches to the operator named by op. Weights are ignored by the
// optimistic and pessimistic operators and may be nil for them.
func (e *Engine) Combine(op Operator, judgments []model.Judgment, weights []float64) (model.Judgment, model.FusionDiagnostics, error) {
	switch op {
	case OperatorCAWA, "":
		return e.FuseDetailed(judgments, weights)
	case OperatorOptimistic:
		return e.extreme(judgments, true)
	case OperatorPessimistic:
		return e.extreme(judgments, false)
	}
	return model.Judgment{}, model.FusionDiagnostics{}, model.ArgumentError("unknown fusion operator %q", op)
}

func (e *Engine) extreme(judgments []model.Judgment, optimistic bool) (model.Judgment, model.FusionDiagnostics, error) {
	if len(judgments) == 0 {
		return model.Judgment{}, model.FusionDiagnostics{}, model.ArgumentError("cannot fuse an empty list of judgments")
	}

	t, f := judgments[0].T(), judgments[0].F()
	for _, j := range judgments[1:] {
		if optimistic {
			t, f = math.Max(t, j.T()), math.Min(f, j.F())
		} else {
			t, f = math.Min(t, j.T()), math.Max(f, j.F())
		}
	}

	// T+F is bounded by one input's own T+F, so only tolerance drift can push it past 1
	if sum := t + f; sum > 1 {
		t, f = t/sum, f/sum
	}
	tr := model.Triple{T: t, I: clampUnit(1 - t - f), F: f}

	operatorID, formula := OptimisticOperatorID, optimisticFormula
	if !optimistic {
		operatorID, formula = PessimisticOperatorID, pessimisticFormula
	}

	out, err := e.finish(operatorID, tr, judgments, nil, nil)
	if err != nil {
		return model.Judgment{}, model.FusionDiagnostics{}, err
	}
	return out, model.FusionDiagnostics{
		Operator: operatorID,
		Inputs:   len(judgments),
		Weights:  uniformWeights(len(judgments)),
		Naive:    tr,
		Formula:  formula,
	}, nil
}

// finish builds the fused judgment: input chains in order, then one operator
// entry carrying the seal and the judgment id. weights are the caller's raw
// weights, nil for equal weighting.
func (e *Engine) finish(operatorID string, tr model.Triple, judgments []model.Judgment, weights []float64, extra map[string]any) (model.Judgment, error) {
	w, err := resolveWeights(weights, len(judgments))
	if err != nil {
		return model.Judgment{}, err
	}

	chains := make([]model.ProvenanceChain, len(judgments))
	refs := make([]string, len(judgments))
	for i, j := range judgments {
		chains[i] = j.Provenance()
		refs[i] = inputRef(j, i)
	}

	seal, err := Seal(judgments, weights, operatorID)
	if err != nil {
		return model.Judgment{}, err
	}

	fields := map[string]any{
		KeyInputCount:            len(judgments),
		KeyInputs:                refs,
		KeyWeights:               w,
		model.KeyConformanceSeal: seal,
	}
	for k, v := range extra {
		fields[k] = v
	}
	entry := model.NewOperatorEntry(operatorID, e.clock(), fields)

	chain := model.Concat(chains...).Append(entry)
	id, err := JudgmentID(tr, chain)
	if err != nil {
		return model.Judgment{}, err
	}
	chain[len(chain)-1][model.KeyJudgmentID] = id

	out, err := model.FromTriple(tr, chain)
	if err != nil {
		return model.Judgment{}, fmt.Errorf("build fused judgment: %w", err)
	}
	return out, nil
}

// inputRef names an input in the fusion entry: its judgment id when it has
// one, else the producer of its last entry, else its position.
func inputRef(j model.Judgment, i int) string {
	if id := j.ID(); id != "" {
		return id
	}
	if ref := j.Provenance().Last().Ref(); ref != "" {
		return ref
	}
	return fmt.Sprintf("input-%d", i)
}

func normalizeWeights(weights []float64) ([]float64, error) {
	var total float64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, model.ArgumentError("weight %d is not finite", i)
		}
		if w < 0 {
			return nil, model.ArgumentError("weight %d is negative (%g)", i, w)
		}
		total += w
	}
	if total == 0 {
		return nil, model.ArgumentError("all weights are zero")
	}

	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / total
	}
	return out, nil
}

func uniformWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// renormalize divides by the component sum when it has drifted from 1
func renormalize(tr model.Triple) model.Triple {
	sum := tr.Sum()
	if sum == 0 || math.Abs(sum-1) <= 1e-12 {
		return tr
	}
	return model.Triple{
		T: clampUnit(tr.T / sum),
		I: clampUnit(tr.I / sum),
		F: clampUnit(tr.F / sum),
	}
}

func clampUnit(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
