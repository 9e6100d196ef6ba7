package mapper

import (
	"fmt"
	"strings"

	"github.com/ppiankov/trustmap/internal/model"
)

// Recognized boolean-like strings (compared trimmed and lower-cased)
var (
	trueForms  = map[string]bool{"true": true, "t": true, "1": true, "yes": true, "y": true, "on": true, "valid": true}
	falseForms = map[string]bool{"false": true, "f": true, "0": true, "no": true, "n": true, "off": true, "invalid": true}
)

// NormalizeBool converts a boolean-like value into a definite bool.
// Integers map 0 to false and anything else to true. Strings must be one of
// the recognized forms. Every other input is a domain error; there is no
// truthiness coercion.
func NormalizeBool(v Value) (bool, error) {
	switch v.Kind() {
	case KindBool:
		return v.boolean, nil
	case KindInteger:
		return v.integer != 0, nil
	case KindText:
		s := strings.ToLower(strings.TrimSpace(v.text))
		if trueForms[s] {
			return true, nil
		}
		if falseForms[s] {
			return false, nil
		}
		return false, model.DomainError("%q is not a recognized boolean form", v.text)
	default:
		return false, model.DomainError("%s input is not boolean-like", v.Kind())
	}
}

// BooleanMapper selects one of two triples from a normalized boolean
type BooleanMapper struct {
	base
	trueMap  model.Triple
	falseMap model.Triple
}

var _ Mapper = (*BooleanMapper)(nil)

// NewBooleanMapper validates both triples and builds a mapper
func NewBooleanMapper(id string, trueMap, falseMap model.Triple, opts ...Option) (*BooleanMapper, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b, err := newBase(id, o)
	if err != nil {
		return nil, err
	}
	if err := trueMap.Validate(); err != nil {
		return nil, fmt.Errorf("mapper %q true_map: %w", id, err)
	}
	if err := falseMap.Validate(); err != nil {
		return nil, fmt.Errorf("mapper %q false_map: %w", id, err)
	}
	return &BooleanMapper{base: b, trueMap: trueMap, falseMap: falseMap}, nil
}

// Type returns TypeBoolean
func (m *BooleanMapper) Type() Type { return TypeBoolean }

// TrueMap returns the triple selected by true input
func (m *BooleanMapper) TrueMap() model.Triple { return m.trueMap }

// FalseMap returns the triple selected by false input
func (m *BooleanMapper) FalseMap() model.Triple { return m.falseMap }

// Map applies the mapper to a native boolean
func (m *BooleanMapper) Map(b bool) (model.Judgment, error) {
	return m.apply(Bool(b), nil)
}

// Apply accepts Bool, Integer and Text values
func (m *BooleanMapper) Apply(v Value) (model.Judgment, error) {
	return m.apply(v, nil)
}

func (m *BooleanMapper) apply(v Value, extra map[string]any) (model.Judgment, error) {
	b, err := NormalizeBool(v)
	if err != nil {
		return model.Judgment{}, fmt.Errorf("mapper %q: %w", m.id, err)
	}
	tr := m.falseMap
	if b {
		tr = m.trueMap
	}
	return m.judgment(TypeBoolean, tr, v, extra)
}

// Document returns the serializable form
func (m *BooleanMapper) Document() (Document, error) {
	return newDocument(m, booleanParams{
		TrueMap:  newTripleDoc(m.trueMap),
		FalseMap: newTripleDoc(m.falseMap),
	})
}

type booleanParams struct {
	TrueMap  *tripleDoc `json:"true_map"`
	FalseMap *tripleDoc `json:"false_map"`
}
