package model

import "time"

// OutcomeType classifies what actually happened after a decision
type OutcomeType string

const (
	OutcomeSuccess   OutcomeType = "success"
	OutcomeFailure   OutcomeType = "failure"
	OutcomePartial   OutcomeType = "partial"
	OutcomeCancelled OutcomeType = "cancelled"
)

// Provenance keys specific to outcomes
const (
	KeyOutcomeType       = "outcome_type"
	KeyLinksToJudgmentID = "links_to_judgment_id"
)

// ParseOutcomeType validates an outcome type string
func ParseOutcomeType(s string) (OutcomeType, error) {
	switch t := OutcomeType(s); t {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial, OutcomeCancelled:
		return t, nil
	}
	return "", ArgumentError("unknown outcome type %q", s)
}

// Outcome records a real-world result and links it to the decision judgment it follows
type Outcome struct {
	LinksTo  string      `json:"links_to_judgment_id"`
	Type     OutcomeType `json:"outcome_type"`
	Oracle   string      `json:"oracle_source"`
	Judgment Judgment    `json:"judgment"`
}

// NewOutcome builds an outcome judgment reported by oracle
func NewOutcome(linksTo string, tr Triple, typ OutcomeType, oracle string, at time.Time) (Outcome, error) {
	if linksTo == "" {
		return Outcome{}, ArgumentError("outcome must link to a judgment id")
	}
	if oracle == "" {
		return Outcome{}, ArgumentError("outcome needs an oracle source")
	}
	if _, err := ParseOutcomeType(string(typ)); err != nil {
		return Outcome{}, err
	}

	entry := NewSourceEntry(oracle, at, nil)
	entry[KeyOutcomeType] = string(typ)
	entry[KeyLinksToJudgmentID] = linksTo

	j, err := FromTriple(tr, ProvenanceChain{entry})
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		LinksTo:  linksTo,
		Type:     typ,
		Oracle:   oracle,
		Judgment: j,
	}, nil
}
