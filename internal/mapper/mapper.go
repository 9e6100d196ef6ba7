// Package mapper turns raw signals into neutrosophic judgments.
//
// Three variants share one contract: NumericalMapper interpolates a scalar
// against falsity, indeterminacy and truth reference points,
// CategoricalMapper looks a label up in a table, and BooleanMapper selects
// one of two triples after normalizing boolean-like input. The variant set
// is closed; Mapper cannot be implemented outside this package.
//
// Mappers are immutable and hold no per-call state, so one instance may be
// applied from any number of goroutines.
package mapper

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ppiankov/trustmap/internal/model"
)

// Type tags a mapper variant
type Type string

const (
	TypeNumerical   Type = "numerical"
	TypeCategorical Type = "categorical"
	TypeBoolean     Type = "boolean"
)

// ParseType validates a type tag
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeNumerical, TypeCategorical, TypeBoolean:
		return t, nil
	}
	return "", model.FormatError("unknown mapper type %q", s)
}

// Mapper is the capability shared by all variants
type Mapper interface {
	ID() string
	Type() Type
	Metadata() Metadata
	// Apply maps one input value to a judgment carrying a one-entry provenance chain
	Apply(v Value) (model.Judgment, error)
	// Document returns the serializable form
	Document() (Document, error)

	apply(v Value, extra map[string]any) (model.Judgment, error)
}

// ApplyWithMetadata applies m and merges extra into the source entry's metadata
func ApplyWithMetadata(m Mapper, v Value, extra map[string]any) (model.Judgment, error) {
	return m.apply(v, extra)
}

// Metadata is free-form descriptive data (domain, description, version, ...)
type Metadata map[string]any

// Clone returns a shallow copy
func (md Metadata) Clone() Metadata {
	if md == nil {
		return nil
	}
	out := make(Metadata, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

// Option configures a mapper at construction
type Option func(*options)

type options struct {
	metadata Metadata
	clock    func() time.Time
	clamp    bool
	def      *model.Triple
}

func defaultOptions() options {
	return options{
		clock: func() time.Time { return time.Now().UTC() },
		clamp: true,
	}
}

// WithMetadata attaches descriptive metadata
func WithMetadata(md Metadata) Option {
	return func(o *options) { o.metadata = md.Clone() }
}

// WithClock overrides the time source used for provenance timestamps
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithClamp sets whether a NumericalMapper clamps out-of-range input (default true)
func WithClamp(clamp bool) Option {
	return func(o *options) { o.clamp = clamp }
}

// WithDefault sets the judgment a CategoricalMapper returns for unknown labels
func WithDefault(tr model.Triple) Option {
	return func(o *options) {
		d := tr
		o.def = &d
	}
}

// base carries what every variant shares
type base struct {
	id       string
	metadata Metadata
	clock    func() time.Time
}

func newBase(id string, o options) (base, error) {
	if id == "" {
		return base{}, model.ArgumentError("mapper id must not be empty")
	}
	return base{id: id, metadata: o.metadata, clock: o.clock}, nil
}

func (b base) ID() string { return b.id }

func (b base) Metadata() Metadata { return b.metadata.Clone() }

// judgment wraps a computed triple with the mapping provenance entry
func (b base) judgment(typ Type, tr model.Triple, v Value, extra map[string]any) (model.Judgment, error) {
	md := map[string]any{
		"mapper_type": string(typ),
		"input":       v.Raw(),
	}
	if version, ok := b.metadata["version"]; ok {
		md["mapper_version"] = version
	}
	for k, val := range extra {
		md[k] = val
	}
	return model.FromTriple(tr, model.ProvenanceChain{model.NewSourceEntry(b.id, b.clock(), md)})
}

// ValueKind tags the representation held by a Value
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindNumber
	KindInteger
	KindBool
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Value is a tagged union of the raw input representations mappers accept
type Value struct {
	kind    ValueKind
	number  float64
	integer int64
	boolean bool
	text    string
}

// Number wraps a real-valued measurement
func Number(x float64) Value { return Value{kind: KindNumber, number: x} }

// Integer wraps an integer reading
func Integer(n int64) Value { return Value{kind: KindInteger, integer: n} }

// Bool wraps a native boolean
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Text wraps a label or boolean-like string
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Kind reports which representation v holds
func (v Value) Kind() ValueKind { return v.kind }

// Raw returns the underlying Go value
func (v Value) Raw() any {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindInteger:
		return v.integer
	case KindBool:
		return v.boolean
	case KindText:
		return v.text
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindText:
		return v.text
	default:
		return "<invalid>"
	}
}

// ParseValue converts raw text into the Value kind a mapper type expects
func ParseValue(typ Type, raw string) (Value, error) {
	switch typ {
	case TypeNumerical:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, model.DomainError("%q is not a number", raw)
		}
		return Number(x), nil
	case TypeCategorical, TypeBoolean:
		return Text(raw), nil
	default:
		return Value{}, model.ArgumentError("unknown mapper type %q", typ)
	}
}

func unsupported(m Mapper, v Value) error {
	return model.DomainError("%s mapper %q does not accept %s input", m.Type(), m.ID(), v.Kind())
}

// Describe renders a short human-readable summary of m
func Describe(m Mapper) string {
	switch t := m.(type) {
	case *NumericalMapper:
		p := t.Points()
		return fmt.Sprintf("numerical %s: F=%g I=%g T=%g clamp=%t", t.ID(), p.Falsity, p.Indeterminacy, p.Truth, t.Clamps())
	case *CategoricalMapper:
		_, hasDefault := t.Default()
		return fmt.Sprintf("categorical %s: %d categories, default=%t", t.ID(), len(t.Categories()), hasDefault)
	case *BooleanMapper:
		return fmt.Sprintf("boolean %s: true=%s false=%s", t.ID(), t.TrueMap(), t.FalseMap())
	default:
		return fmt.Sprintf("%s %s", m.Type(), m.ID())
	}
}
