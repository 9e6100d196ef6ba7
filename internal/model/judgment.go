package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Tolerance bounds the accepted deviation of T+I+F from 1
const Tolerance = 1e-6

// Triple is a bare (T, I, F) value: degrees of truth, indeterminacy and falsity
type Triple struct {
	T float64 `json:"T" yaml:"T"`
	I float64 `json:"I" yaml:"I"`
	F float64 `json:"F" yaml:"F"`
}

// NewTriple validates and returns a triple
func NewTriple(t, i, f float64) (Triple, error) {
	tr := Triple{T: t, I: i, F: f}
	if err := tr.Validate(); err != nil {
		return Triple{}, err
	}
	return tr, nil
}

// Validate enforces component range [0,1] and T+I+F = 1 within Tolerance
func (tr Triple) Validate() error {
	for _, c := range []struct {
		name  string
		value float64
	}{{"T", tr.T}, {"I", tr.I}, {"F", tr.F}} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return ValidationError("%s is not a finite number", c.name)
		}
		if c.value < 0 || c.value > 1 {
			return ValidationError("%s=%g outside [0,1]", c.name, c.value)
		}
	}
	if sum := tr.Sum(); math.Abs(sum-1) > Tolerance {
		return ValidationError("T+I+F=%g, must equal 1 (T=%g, I=%g, F=%g)", sum, tr.T, tr.I, tr.F)
	}
	return nil
}

// Sum returns T+I+F
func (tr Triple) Sum() float64 {
	return tr.T + tr.I + tr.F
}

// ApproxEqual compares two triples component-wise within tol
func (tr Triple) ApproxEqual(other Triple, tol float64) bool {
	return math.Abs(tr.T-other.T) <= tol &&
		math.Abs(tr.I-other.I) <= tol &&
		math.Abs(tr.F-other.F) <= tol
}

func (tr Triple) String() string {
	return fmt.Sprintf("(T=%.3f, I=%.3f, F=%.3f)", tr.T, tr.I, tr.F)
}

// Judgment is an immutable (T, I, F) value with its provenance chain.
//
// The zero Judgment is not valid; build one with NewJudgment or FromTriple.
// Every derivation (mapping, fusion, extension) returns a new Judgment.
type Judgment struct {
	triple Triple
	chain  ProvenanceChain
}

// NewJudgment validates the components and provenance entries
func NewJudgment(t, i, f float64, chain ...ProvenanceEntry) (Judgment, error) {
	return FromTriple(Triple{T: t, I: i, F: f}, chain)
}

// FromTriple builds a judgment from a triple and a provenance chain
func FromTriple(tr Triple, chain ProvenanceChain) (Judgment, error) {
	if err := tr.Validate(); err != nil {
		return Judgment{}, err
	}
	if err := chain.Validate(); err != nil {
		return Judgment{}, err
	}
	return Judgment{triple: tr, chain: chain.Clone()}, nil
}

// T returns the degree of truth
func (j Judgment) T() float64 { return j.triple.T }

// I returns the degree of indeterminacy
func (j Judgment) I() float64 { return j.triple.I }

// F returns the degree of falsity
func (j Judgment) F() float64 { return j.triple.F }

// Triple returns the bare components
func (j Judgment) Triple() Triple { return j.triple }

// Provenance returns a copy of the provenance chain
func (j Judgment) Provenance() ProvenanceChain {
	return j.chain.Clone()
}

// Len returns the provenance chain length
func (j Judgment) Len() int { return len(j.chain) }

// IsZero reports whether j is the (invalid) zero value
func (j Judgment) IsZero() bool {
	return j.triple == Triple{} && j.chain == nil
}

// Extend returns a new judgment with the same components and entry appended
func (j Judgment) Extend(entry ProvenanceEntry) (Judgment, error) {
	if err := j.triple.Validate(); err != nil {
		return Judgment{}, err
	}
	if err := entry.Validate(); err != nil {
		return Judgment{}, err
	}
	return Judgment{triple: j.triple, chain: j.chain.Append(entry)}, nil
}

// ID returns the most recent judgment_id recorded in the chain
func (j Judgment) ID() string {
	for k := len(j.chain) - 1; k >= 0; k-- {
		if id := j.chain[k].String(KeyJudgmentID); id != "" {
			return id
		}
	}
	return ""
}

func (j Judgment) String() string {
	return fmt.Sprintf("%s [%d provenance entries]", j.triple, len(j.chain))
}

// judgmentDocument is the serialized form
type judgmentDocument struct {
	T               *float64          `json:"T"`
	I               *float64          `json:"I"`
	F               *float64          `json:"F"`
	ProvenanceChain []ProvenanceEntry `json:"provenance_chain"`
}

// MarshalJSON renders {"T","I","F","provenance_chain"}
func (j Judgment) MarshalJSON() ([]byte, error) {
	chain := j.chain
	if chain == nil {
		chain = ProvenanceChain{}
	}
	t, i, f := j.triple.T, j.triple.I, j.triple.F
	return json.Marshal(judgmentDocument{T: &t, I: &i, F: &f, ProvenanceChain: chain})
}

// UnmarshalJSON decodes and re-validates a judgment document
func (j *Judgment) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return WrapFormat(err, "judgment document is not a JSON object")
	}
	for _, field := range []string{"T", "I", "F", "provenance_chain"} {
		v, ok := raw[field]
		if !ok {
			return FormatError("judgment document missing %q", field)
		}
		if string(bytes.TrimSpace(v)) == "null" {
			return FormatError("judgment field %q is null", field)
		}
	}

	var doc judgmentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return WrapFormat(err, "decode judgment document")
	}
	if doc.T == nil || doc.I == nil || doc.F == nil {
		return FormatError("judgment components must be numbers")
	}

	chain := ProvenanceChain(doc.ProvenanceChain)
	for i, e := range chain {
		if e == nil {
			return FormatError("provenance entry %d is not an object", i)
		}
		if err := e.Validate(); err != nil {
			return WrapFormat(err, "provenance entry %d", i)
		}
	}

	tr := Triple{T: *doc.T, I: *doc.I, F: *doc.F}
	if err := tr.Validate(); err != nil {
		return err
	}

	*j = Judgment{triple: tr, chain: chain}
	return nil
}

// ParseJudgment decodes a judgment document
func ParseJudgment(data []byte) (Judgment, error) {
	var j Judgment
	if err := json.Unmarshal(data, &j); err != nil {
		return Judgment{}, err
	}
	return j, nil
}
