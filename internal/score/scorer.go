package score

import (
	"fmt"

	"github.com/ppiankov/trustmap/internal/model"
)

// Conflict levels for the conflict signal
const (
	ConflictWarning  = 0.3
	ConflictCritical = 0.6
)

// Assessment is the decision and the signals that explain it
type Assessment struct {
	Decision model.Decision
	Signals  []model.Signal
}

// Scorer classifies fused judgments and generates diagnostic signals
type Scorer struct {
	cfg model.DecisionConfig
}

// NewScorer creates a scorer using the given thresholds
func NewScorer(cfg model.DecisionConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Assess classifies fused and explains the result. fused and diag are nil
// when no observation could be mapped.
func (s *Scorer) Assess(observations []model.ObservationResult, fused *model.Judgment, diag *model.FusionDiagnostics) Assessment {
	var signals []model.Signal

	// 1. Observations that never became judgments
	if sig, ok := s.mappingFailures(observations); ok {
		signals = append(signals, sig)
	}

	if fused == nil {
		return Assessment{Decision: model.DecisionInconclusive, Signals: signals}
	}

	// 2. Disagreement between sources
	if sig, ok := s.conflict(diag); ok {
		signals = append(signals, sig)
	}

	// 3. A single source carrying the result
	if sig, ok := s.dominantSource(observations, diag); ok {
		signals = append(signals, sig)
	}

	// 4. Not enough information either way
	if sig, ok := s.highIndeterminacy(fused); ok {
		signals = append(signals, sig)
	}

	return Assessment{
		Decision: model.Classify(fused.Triple(), s.cfg),
		Signals:  signals,
	}
}

func (s *Scorer) mappingFailures(observations []model.ObservationResult) (model.Signal, bool) {
	var failed []string
	for _, o := range observations {
		if o.Error != "" {
			failed = append(failed, o.Mapper)
		}
	}
	if len(failed) == 0 {
		return model.Signal{}, false
	}

	severity := model.SeverityWarning
	if len(failed) == len(observations) {
		severity = model.SeverityCritical
	}

	return model.Signal{
		Type:        model.SignalMappingFailure,
		Severity:    severity,
		Description: fmt.Sprintf("%d/%d observations could not be mapped and were left out of fusion", len(failed), len(observations)),
		Data: map[string]interface{}{
			"failed":  len(failed),
			"total":   len(observations),
			"mappers": failed,
		},
	}, true
}

func (s *Scorer) conflict(diag *model.FusionDiagnostics) (model.Signal, bool) {
	if diag == nil || diag.Conflict < ConflictWarning {
		return model.Signal{}, false
	}

	severity := model.SeverityWarning
	if diag.Conflict >= ConflictCritical {
		severity = model.SeverityCritical
	}

	return model.Signal{
		Type:        model.SignalConflict,
		Severity:    severity,
		Description: fmt.Sprintf("Sources disagree (conflict %.2f); %.0f%% of T and F moved to I", diag.Conflict, diag.Shift*100),
		Data: map[string]interface{}{
			"conflict": diag.Conflict,
			"shift":    diag.Shift,
			"inputs":   diag.Inputs,
			"formula":  "sum(w_i * |p_i - p_mean|), p = T - F",
		},
	}, true
}

func (s *Scorer) dominantSource(observations []model.ObservationResult, diag *model.FusionDiagnostics) (model.Signal, bool) {
	if diag == nil || len(diag.Weights) < 2 {
		return model.Signal{}, false
	}

	top := 0
	for i, w := range diag.Weights {
		if w > diag.Weights[top] {
			top = i
		}
	}
	if diag.Weights[top] <= 0.5 {
		return model.Signal{}, false
	}

	// Weights only cover observations that mapped
	mapperID := ""
	n := 0
	for _, o := range observations {
		if o.Error != "" {
			continue
		}
		if n == top {
			mapperID = o.Mapper
			break
		}
		n++
	}

	return model.Signal{
		Type:        model.SignalDominantSource,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%s carries %.0f%% of the total weight", mapperID, diag.Weights[top]*100),
		Data: map[string]interface{}{
			"mapper": mapperID,
			"weight": diag.Weights[top],
		},
	}, true
}

func (s *Scorer) highIndeterminacy(fused *model.Judgment) (model.Signal, bool) {
	if fused.I() < s.cfg.ReviewThreshold {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalHighIndeterminacy,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("Indeterminacy %.2f is at or above the review threshold %.2f", fused.I(), s.cfg.ReviewThreshold),
		Data: map[string]interface{}{
			"I":         fused.I(),
			"threshold": s.cfg.ReviewThreshold,
		},
	}, true
}
