package model

import (
	"fmt"
	"time"
)

// Well-known provenance keys
const (
	KeySourceID        = "source_id"
	KeyOperatorID      = "operator_id"
	KeyTimestamp       = "timestamp"
	KeyJudgmentID      = "judgment_id"
	KeyConformanceSeal = "conformance_seal"
	KeyMetadata        = "metadata"
)

// ProvenanceEntry records one step in the production of a judgment.
// It is a free-form mapping that carries at least a source_id (mapping)
// or an operator_id (fusion), plus a timestamp.
type ProvenanceEntry map[string]any

// NewSourceEntry creates an entry for a judgment produced from raw input
func NewSourceEntry(sourceID string, at time.Time, metadata map[string]any) ProvenanceEntry {
	e := ProvenanceEntry{
		KeySourceID:  sourceID,
		KeyTimestamp: FormatTimestamp(at),
	}
	if len(metadata) > 0 {
		e[KeyMetadata] = cloneValue(metadata)
	}
	return e
}

// NewOperatorEntry creates an entry for a judgment derived by an operator
func NewOperatorEntry(operatorID string, at time.Time, fields map[string]any) ProvenanceEntry {
	e := make(ProvenanceEntry, len(fields)+2)
	for k, v := range fields {
		e[k] = cloneValue(v)
	}
	e[KeyOperatorID] = operatorID
	e[KeyTimestamp] = FormatTimestamp(at)
	return e
}

// FormatTimestamp renders a provenance timestamp (RFC3339, UTC)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// SourceID returns the entry's source_id, if any
func (e ProvenanceEntry) SourceID() string {
	s, _ := e[KeySourceID].(string)
	return s
}

// OperatorID returns the entry's operator_id, if any
func (e ProvenanceEntry) OperatorID() string {
	s, _ := e[KeyOperatorID].(string)
	return s
}

// Timestamp returns the entry's timestamp string
func (e ProvenanceEntry) Timestamp() string {
	s, _ := e[KeyTimestamp].(string)
	return s
}

// String returns a string field, or "" when absent or not a string
func (e ProvenanceEntry) String(key string) string {
	s, _ := e[key].(string)
	return s
}

// Ref identifies the producer of the entry: its source_id, else its operator_id.
func (e ProvenanceEntry) Ref() string {
	if id := e.SourceID(); id != "" {
		return id
	}
	return e.OperatorID()
}

// Validate checks the minimum shape of an entry
func (e ProvenanceEntry) Validate() error {
	if e.SourceID() == "" && e.OperatorID() == "" {
		return ArgumentError("provenance entry needs %s or %s", KeySourceID, KeyOperatorID)
	}
	if e.Timestamp() == "" {
		return ArgumentError("provenance entry %q has no %s", e.Ref(), KeyTimestamp)
	}
	return nil
}

// Clone returns a deep copy of the entry
func (e ProvenanceEntry) Clone() ProvenanceEntry {
	if e == nil {
		return nil
	}
	return cloneValue(map[string]any(e)).(map[string]any)
}

// ProvenanceChain is the ordered, append-only audit trail of a judgment
type ProvenanceChain []ProvenanceEntry

// Append returns a new chain with entries added at the end.
// The receiver is never modified and never shares its backing array with the result.
func (c ProvenanceChain) Append(entries ...ProvenanceEntry) ProvenanceChain {
	out := make(ProvenanceChain, 0, len(c)+len(entries))
	out = append(out, c.Clone()...)
	for _, e := range entries {
		out = append(out, e.Clone())
	}
	return out
}

// Concat joins chains in the given order
func Concat(chains ...ProvenanceChain) ProvenanceChain {
	n := 0
	for _, c := range chains {
		n += len(c)
	}
	out := make(ProvenanceChain, 0, n)
	for _, c := range chains {
		out = append(out, c.Clone()...)
	}
	return out
}

// Clone deep-copies every entry
func (c ProvenanceChain) Clone() ProvenanceChain {
	if c == nil {
		return nil
	}
	out := make(ProvenanceChain, len(c))
	for i, e := range c {
		out[i] = e.Clone()
	}
	return out
}

// Validate checks every entry in order
func (c ProvenanceChain) Validate() error {
	for i, e := range c {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("provenance entry %d: %w", i, err)
		}
	}
	return nil
}

// Last returns the final entry, or nil for an empty chain
func (c ProvenanceChain) Last() ProvenanceEntry {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

// Refs lists the producer reference of every entry
func (c ProvenanceChain) Refs() []string {
	refs := make([]string, len(c))
	for i, e := range c {
		refs[i] = e.Ref()
	}
	return refs
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case ProvenanceEntry:
		return cloneValue(map[string]any(t))
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}
