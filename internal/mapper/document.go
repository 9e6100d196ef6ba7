package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/trustmap/internal/model"
)

// SchemaVersion is the document version written by Encode
const SchemaVersion = "1.0"

// supportedVersions lists the document versions Decode accepts
var supportedVersions = map[string]bool{"1.0": true}

// Document is the serialized form of a mapper
type Document struct {
	Version    string          `json:"version"`
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
	Metadata   Metadata        `json:"metadata"`
}

func newDocument(m Mapper, params any) (Document, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Document{}, fmt.Errorf("marshal %s parameters: %w", m.Type(), err)
	}
	md := m.Metadata()
	if md == nil {
		md = Metadata{}
	}
	return Document{
		Version:    SchemaVersion,
		ID:         m.ID(),
		Type:       m.Type(),
		Parameters: raw,
		Metadata:   md,
	}, nil
}

// tripleDoc uses pointers so a missing component is a format error, not a zero
type tripleDoc struct {
	T *float64 `json:"T"`
	I *float64 `json:"I"`
	F *float64 `json:"F"`
}

func newTripleDoc(tr model.Triple) *tripleDoc {
	t, i, f := tr.T, tr.I, tr.F
	return &tripleDoc{T: &t, I: &i, F: &f}
}

func (d *tripleDoc) triple(field string) (model.Triple, error) {
	if d == nil {
		return model.Triple{}, model.FormatError("%s is required", field)
	}
	if d.T == nil || d.I == nil || d.F == nil {
		return model.Triple{}, model.FormatError("%s needs T, I and F", field)
	}
	return model.Triple{T: *d.T, I: *d.I, F: *d.F}, nil
}

// Encode renders m as an indented JSON document
func Encode(m Mapper) ([]byte, error) {
	doc, err := m.Document()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal mapper %q: %w", m.ID(), err)
	}
	return data, nil
}

// Decode parses a JSON mapper document and reconstructs the mapper
func Decode(data []byte, opts ...Option) (Mapper, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, model.WrapFormat(err, "mapper document is not a JSON object")
	}
	for _, field := range []string{"version", "id", "type", "parameters"} {
		if _, ok := raw[field]; !ok {
			return nil, model.FormatError("mapper document missing %q", field)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.WrapFormat(err, "decode mapper document")
	}
	return FromDocument(doc, opts...)
}

// DecodeYAML parses a mapper document written in YAML.
// The shape is identical to the JSON document.
func DecodeYAML(data []byte, opts ...Option) (Mapper, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, model.WrapFormat(err, "parse YAML mapper document")
	}
	asJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, model.WrapFormat(err, "convert YAML mapper document")
	}
	return Decode(asJSON, opts...)
}

// FromDocument reconstructs a mapper. Document metadata wins over a WithMetadata option.
func FromDocument(doc Document, opts ...Option) (Mapper, error) {
	if !supportedVersions[doc.Version] {
		return nil, model.FormatError("unsupported mapper document version %q", doc.Version)
	}
	if doc.ID == "" {
		return nil, model.FormatError("mapper document id must not be empty")
	}
	typ, err := ParseType(string(doc.Type))
	if err != nil {
		return nil, err
	}
	if len(doc.Metadata) > 0 {
		opts = append(opts, WithMetadata(doc.Metadata))
	}

	switch typ {
	case TypeNumerical:
		var p numericalParams
		if err := decodeParams(doc.Parameters, &p); err != nil {
			return nil, err
		}
		if p.FalsityPoint == nil || p.IndeterminacyPoint == nil || p.TruthPoint == nil {
			return nil, model.FormatError("numerical parameters need falsity_point, indeterminacy_point and truth_point")
		}
		if p.ClampToRange != nil {
			opts = append(opts, WithClamp(*p.ClampToRange))
		}
		return NewNumericalMapper(doc.ID, Points{
			Falsity:       *p.FalsityPoint,
			Indeterminacy: *p.IndeterminacyPoint,
			Truth:         *p.TruthPoint,
		}, opts...)

	case TypeCategorical:
		var p categoricalParams
		if err := decodeParams(doc.Parameters, &p); err != nil {
			return nil, err
		}
		if p.Mappings == nil {
			return nil, model.FormatError("categorical parameters need mappings")
		}
		table := make(map[string]model.Triple, len(p.Mappings))
		for label, d := range p.Mappings {
			tr, err := d.triple("mappings." + label)
			if err != nil {
				return nil, err
			}
			table[label] = tr
		}
		if p.Default != nil {
			def, err := p.Default.triple("default_judgment")
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithDefault(def))
		}
		return NewCategoricalMapper(doc.ID, table, opts...)

	case TypeBoolean:
		var p booleanParams
		if err := decodeParams(doc.Parameters, &p); err != nil {
			return nil, err
		}
		trueMap, err := p.TrueMap.triple("true_map")
		if err != nil {
			return nil, err
		}
		falseMap, err := p.FalseMap.triple("false_map")
		if err != nil {
			return nil, err
		}
		return NewBooleanMapper(doc.ID, trueMap, falseMap, opts...)
	}

	return nil, model.FormatError("unknown mapper type %q", doc.Type)
}

// decodeParams rejects unknown parameter names so typos surface as format errors
func decodeParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return model.FormatError("parameters must be an object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return model.WrapFormat(err, "decode parameters")
	}
	return nil
}
