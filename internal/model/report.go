package model

import "time"

// Report is the complete result of evaluating a case
type Report struct {
	Subject     string    `json:"subject"`      // What was evaluated (e.g., "loan-4711")
	RunID       string    `json:"run_id"`       // Batch run identifier stamped into mapping provenance
	EvaluatedAt time.Time `json:"evaluated_at"` // When the evaluation ran

	Observations []ObservationResult `json:"observations"` // One per input observation, in input order

	Fused       *Judgment          `json:"fused,omitempty"`       // Absent when nothing could be fused
	Diagnostics *FusionDiagnostics `json:"diagnostics,omitempty"` // How the fused judgment was derived
	Decision    Decision           `json:"decision"`
	Signals     []Signal           `json:"signals"` // Diagnostic signals with transparent data
}

// ObservationResult is one mapped observation
type ObservationResult struct {
	Mapper   string    `json:"mapper"`
	Value    string    `json:"value"`
	Weight   float64   `json:"weight"`
	Judgment *Judgment `json:"judgment,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// FusionDiagnostics exposes the intermediate values of a fusion
type FusionDiagnostics struct {
	Operator string    `json:"operator"`
	Inputs   int       `json:"inputs"`
	Weights  []float64 `json:"weights,omitempty"` // Normalized
	Naive    Triple    `json:"naive"`             // Weighted average before redistribution
	Conflict float64   `json:"conflict"`          // Dispersion of T-F polarity, [0,1]
	Shift    float64   `json:"shift"`             // Share of T and F moved into I
	Formula  string    `json:"formula"`
}

// Decision classifies a fused judgment
type Decision string

const (
	DecisionApprove      Decision = "approve"
	DecisionReview       Decision = "review"
	DecisionReject       Decision = "reject"
	DecisionInconclusive Decision = "inconclusive" // No judgment could be produced
)

// Classify maps a triple onto a decision using the configured thresholds
func Classify(tr Triple, cfg DecisionConfig) Decision {
	switch {
	case tr.T >= cfg.ApproveThreshold:
		return DecisionApprove
	case tr.I >= cfg.ReviewThreshold:
		return DecisionReview
	default:
		return DecisionReject
	}
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalConflict          SignalType = "conflict"           // Sources disagree on polarity
	SignalMappingFailure    SignalType = "mapping_failure"    // An observation could not be mapped
	SignalDominantSource    SignalType = "dominant_source"    // One weight outweighs all others combined
	SignalHighIndeterminacy SignalType = "high_indeterminacy" // Fused I above the review threshold
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
