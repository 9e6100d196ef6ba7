package mapper

import (
	"math"

	"github.com/ppiankov/trustmap/internal/model"
)

// Points are the three reference points of a NumericalMapper.
// They need not ascend: Falsity > Indeterminacy > Truth is a valid geometry.
type Points struct {
	Falsity       float64 `json:"falsity_point"`
	Indeterminacy float64 `json:"indeterminacy_point"`
	Truth         float64 `json:"truth_point"`
}

// NumericalMapper interpolates a scalar across two transition zones:
// falsity point -> indeterminacy point -> truth point.
type NumericalMapper struct {
	base
	points Points
	clamp  bool
}

var _ Mapper = (*NumericalMapper)(nil)

// NewNumericalMapper validates the reference points and builds a mapper
func NewNumericalMapper(id string, p Points, opts ...Option) (*NumericalMapper, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b, err := newBase(id, o)
	if err != nil {
		return nil, err
	}

	for _, v := range []float64{p.Falsity, p.Indeterminacy, p.Truth} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, model.ArgumentError("mapper %q: reference points must be finite", id)
		}
	}
	if p.Falsity == p.Truth {
		return nil, model.ArgumentError("mapper %q: falsity and truth points coincide at %g", id, p.Falsity)
	}
	lo, hi := math.Min(p.Falsity, p.Truth), math.Max(p.Falsity, p.Truth)
	if p.Indeterminacy < lo || p.Indeterminacy > hi {
		return nil, model.ArgumentError("mapper %q: indeterminacy point %g must lie within [%g, %g]", id, p.Indeterminacy, lo, hi)
	}

	return &NumericalMapper{base: b, points: p, clamp: o.clamp}, nil
}

// Type returns TypeNumerical
func (m *NumericalMapper) Type() Type { return TypeNumerical }

// Points returns a copy of the reference points
func (m *NumericalMapper) Points() Points { return m.points }

// Clamps reports whether out-of-range input is clamped instead of rejected
func (m *NumericalMapper) Clamps() bool { return m.clamp }

// Range returns the valid input domain [min(F,T), max(F,T)]
func (m *NumericalMapper) Range() (lo, hi float64) {
	return math.Min(m.points.Falsity, m.points.Truth), math.Max(m.points.Falsity, m.points.Truth)
}

// InRange reports whether x lies within Range
func (m *NumericalMapper) InRange(x float64) bool {
	lo, hi := m.Range()
	return x >= lo && x <= hi
}

// Map applies the mapper to a scalar
func (m *NumericalMapper) Map(x float64) (model.Judgment, error) {
	return m.apply(Number(x), nil)
}

// Apply accepts Number and Integer values
func (m *NumericalMapper) Apply(v Value) (model.Judgment, error) {
	return m.apply(v, nil)
}

func (m *NumericalMapper) apply(v Value, extra map[string]any) (model.Judgment, error) {
	var x float64
	switch v.Kind() {
	case KindNumber:
		x = v.number
	case KindInteger:
		x = float64(v.integer)
	default:
		return model.Judgment{}, unsupported(m, v)
	}

	tr, err := m.Evaluate(x)
	if err != nil {
		return model.Judgment{}, err
	}
	return m.judgment(TypeNumerical, tr, v, extra)
}

// Evaluate computes the triple for x without building provenance
func (m *NumericalMapper) Evaluate(x float64) (model.Triple, error) {
	if math.IsNaN(x) {
		return model.Triple{}, model.DomainError("mapper %q: input is NaN", m.id)
	}

	lo, hi := m.Range()
	if x < lo || x > hi {
		if !m.clamp {
			return model.Triple{}, model.DomainError("mapper %q: input %g outside [%g, %g]", m.id, x, lo, hi)
		}
		x = math.Max(lo, math.Min(hi, x))
	}

	return m.interpolate(x), nil
}

// interpolate assumes x is within Range.
//
// Within the zone between an endpoint e and the indeterminacy point mid,
// ratio = (x-e)/(mid-e) runs from 0 at e to 1 at mid. The component owned by
// e is 1-ratio, I is ratio and the opposite component is 0. A zone whose
// endpoint coincides with mid collapses to the single point mid, which is
// caught by the first branch, so the division never sees a zero span.
func (m *NumericalMapper) interpolate(x float64) model.Triple {
	p := m.points
	mid := p.Indeterminacy
	if x == mid {
		return model.Triple{I: 1}
	}

	truthSide := p.Truth != mid && (x > mid) == (p.Truth > mid)
	end := p.Falsity
	if truthSide {
		end = p.Truth
	}

	ratio := (x - end) / (mid - end)
	if truthSide {
		return model.Triple{T: 1 - ratio, I: ratio}
	}
	return model.Triple{I: ratio, F: 1 - ratio}
}

// Document returns the serializable form
func (m *NumericalMapper) Document() (Document, error) {
	clamp := m.clamp
	return newDocument(m, numericalParams{
		FalsityPoint:       &m.points.Falsity,
		IndeterminacyPoint: &m.points.Indeterminacy,
		TruthPoint:         &m.points.Truth,
		ClampToRange:       &clamp,
	})
}

type numericalParams struct {
	FalsityPoint       *float64 `json:"falsity_point"`
	IndeterminacyPoint *float64 `json:"indeterminacy_point"`
	TruthPoint         *float64 `json:"truth_point"`
	ClampToRange       *bool    `json:"clamp_to_range,omitempty"`
}
