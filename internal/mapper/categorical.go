package mapper

import (
	"fmt"
	"sort"

	"github.com/ppiankov/trustmap/internal/model"
)

// CategoricalMapper looks a discrete label up in a table of triples.
//
// Modifying operations (AddCategory, RemoveCategory, ReplaceDefault,
// DropDefault) return a new mapper; the receiver is never changed.
type CategoricalMapper struct {
	base
	table map[string]model.Triple
	def   *model.Triple
}

var _ Mapper = (*CategoricalMapper)(nil)

// NewCategoricalMapper copies and validates the table. Use WithDefault to
// configure a fallback for labels absent from the table.
func NewCategoricalMapper(id string, table map[string]model.Triple, opts ...Option) (*CategoricalMapper, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b, err := newBase(id, o)
	if err != nil {
		return nil, err
	}

	return newCategorical(b, copyTable(table), o.def)
}

func newCategorical(b base, table map[string]model.Triple, def *model.Triple) (*CategoricalMapper, error) {
	for label, tr := range table {
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("mapper %q category %q: %w", b.id, label, err)
		}
	}
	if def != nil {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("mapper %q default judgment: %w", b.id, err)
		}
	}
	if len(table) == 0 && def == nil {
		return nil, model.ArgumentError("mapper %q: needs at least one category or a default judgment", b.id)
	}
	return &CategoricalMapper{base: b, table: table, def: def}, nil
}

// Type returns TypeCategorical
func (m *CategoricalMapper) Type() Type { return TypeCategorical }

// Categories returns the table's labels, sorted
func (m *CategoricalMapper) Categories() []string {
	labels := make([]string, 0, len(m.table))
	for label := range m.table {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Lookup returns the triple for label without falling back to the default
func (m *CategoricalMapper) Lookup(label string) (model.Triple, bool) {
	tr, ok := m.table[label]
	return tr, ok
}

// Default returns the fallback triple, if configured
func (m *CategoricalMapper) Default() (model.Triple, bool) {
	if m.def == nil {
		return model.Triple{}, false
	}
	return *m.def, true
}

// Map applies the mapper to a label
func (m *CategoricalMapper) Map(label string) (model.Judgment, error) {
	return m.apply(Text(label), nil)
}

// Apply accepts Text values
func (m *CategoricalMapper) Apply(v Value) (model.Judgment, error) {
	return m.apply(v, nil)
}

func (m *CategoricalMapper) apply(v Value, extra map[string]any) (model.Judgment, error) {
	if v.Kind() != KindText {
		return model.Judgment{}, unsupported(m, v)
	}

	tr, ok := m.table[v.text]
	if !ok {
		if m.def == nil {
			return model.Judgment{}, model.LookupError(v.text, "mapper %q: label %q not found and no default configured", m.id, v.text)
		}
		tr = *m.def
		merged := map[string]any{"defaulted": true}
		for k, val := range extra {
			merged[k] = val
		}
		extra = merged
	}
	return m.judgment(TypeCategorical, tr, v, extra)
}

// AddCategory returns a new mapper with label added
func (m *CategoricalMapper) AddCategory(label string, tr model.Triple) (*CategoricalMapper, error) {
	if _, exists := m.table[label]; exists {
		return nil, model.ArgumentError("mapper %q: category %q already exists", m.id, label)
	}
	table := copyTable(m.table)
	table[label] = tr
	return newCategorical(m.base, table, m.def)
}

// RemoveCategory returns a new mapper without label
func (m *CategoricalMapper) RemoveCategory(label string) (*CategoricalMapper, error) {
	if _, exists := m.table[label]; !exists {
		return nil, model.LookupError(label, "mapper %q: category %q does not exist", m.id, label)
	}
	table := copyTable(m.table)
	delete(table, label)
	return newCategorical(m.base, table, m.def)
}

// ReplaceDefault returns a new mapper with tr as the fallback judgment
func (m *CategoricalMapper) ReplaceDefault(tr model.Triple) (*CategoricalMapper, error) {
	d := tr
	return newCategorical(m.base, copyTable(m.table), &d)
}

// DropDefault returns a new mapper without a fallback judgment
func (m *CategoricalMapper) DropDefault() (*CategoricalMapper, error) {
	return newCategorical(m.base, copyTable(m.table), nil)
}

// Document returns the serializable form
func (m *CategoricalMapper) Document() (Document, error) {
	params := categoricalParams{Mappings: make(map[string]*tripleDoc, len(m.table))}
	for label, tr := range m.table {
		params.Mappings[label] = newTripleDoc(tr)
	}
	if m.def != nil {
		params.Default = newTripleDoc(*m.def)
	}
	return newDocument(m, params)
}

type categoricalParams struct {
	Mappings map[string]*tripleDoc `json:"mappings"`
	Default  *tripleDoc            `json:"default_judgment"`
}

func copyTable(table map[string]model.Triple) map[string]model.Triple {
	out := make(map[string]model.Triple, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}
