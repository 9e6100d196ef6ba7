package mapper

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/trustmap/internal/model"
)

func roundTrip(t *testing.T, m Mapper) Mapper {
	t.Helper()
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode(%s): %v", m.ID(), err)
	}
	back, err := Decode(data, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Decode(%s): %v\n%s", m.ID(), err, data)
	}
	return back
}

func TestDocument_RoundTrip(t *testing.T) {
	numerical, err := NewNumericalMapper("server-room-temp", Points{Falsity: 35, Indeterminacy: 22, Truth: 18},
		WithClamp(false), WithMetadata(Metadata{"domain": "ops", "version": "1.2"}), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}
	categorical, err := NewCategoricalMapper("kyc-status", statusTable(),
		WithDefault(model.Triple{I: 1}), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}
	boolean, err := NewBooleanMapper("sig-check", model.Triple{T: 0.9, I: 0.1}, model.Triple{I: 0.2, F: 0.8}, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		desc   string
		m      Mapper
		inputs []Value
	}{
		{"numerical", numerical, []Value{Number(18), Number(20), Number(30), Integer(35)}},
		{"categorical", categorical, []Value{Text("VERIFIED"), Text("SUSPICIOUS"), Text("UNKNOWN")}},
		{"boolean", boolean, []Value{Bool(true), Text("no"), Integer(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			back := roundTrip(t, tt.m)

			if back.ID() != tt.m.ID() || back.Type() != tt.m.Type() {
				t.Errorf("identity mismatch: %s/%s vs %s/%s", back.ID(), back.Type(), tt.m.ID(), tt.m.Type())
			}

			for _, in := range tt.inputs {
				want, err := tt.m.Apply(in)
				if err != nil {
					t.Fatalf("original Apply(%v): %v", in, err)
				}
				got, err := back.Apply(in)
				if err != nil {
					t.Fatalf("decoded Apply(%v): %v", in, err)
				}
				if diff := cmp.Diff(want.Triple(), got.Triple()); diff != "" {
					t.Errorf("Apply(%v) mismatch (-want +got):\n%s", in, diff)
				}
			}
		})
	}

	back := roundTrip(t, numerical).(*NumericalMapper)
	if back.Clamps() {
		t.Error("clamp_to_range=false lost in round trip")
	}
	if diff := cmp.Diff(Metadata{"domain": "ops", "version": "1.2"}, back.Metadata()); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Shape(t *testing.T) {
	m, err := NewBooleanMapper("b", model.Triple{T: 1}, model.Triple{F: 1})
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("encoded document is not JSON: %v", err)
	}
	want := map[string]any{
		"version": "1.0",
		"id":      "b",
		"type":    "boolean",
		"parameters": map[string]any{
			"true_map":  map[string]any{"T": 1.0, "I": 0.0, "F": 0.0},
			"false_map": map[string]any{"T": 0.0, "I": 0.0, "F": 1.0},
		},
		"metadata": map[string]any{},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
version: "1.0"
id: defi-health-factor
type: numerical
parameters:
  falsity_point: 1.0
  indeterminacy_point: 1.5
  truth_point: 3.0
metadata:
  domain: defi
`
	m, err := DecodeYAML([]byte(doc), WithClock(fixedClock))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if m.Type() != TypeNumerical || m.ID() != "defi-health-factor" {
		t.Fatalf("unexpected mapper %s", Describe(m))
	}
	j, err := m.Apply(Number(2.25))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	assertTriple(t, j, model.Triple{T: 0.5, I: 0.5})
	if m.Metadata()["domain"] != "defi" {
		t.Errorf("expected domain metadata, got %v", m.Metadata())
	}
}

func TestDecode_FormatErrors(t *testing.T) {
	tests := []struct {
		desc string
		doc  string
	}{
		{"not json", `{`},
		{"array", `[]`},
		{"missing version", `{"id":"x","type":"boolean","parameters":{}}`},
		{"missing parameters", `{"version":"1.0","id":"x","type":"boolean"}`},
		{"unsupported version", `{"version":"2.0","id":"x","type":"boolean","parameters":{}}`},
		{"unknown type", `{"version":"1.0","id":"x","type":"fuzzy","parameters":{}}`},
		{"empty id", `{"version":"1.0","id":"","type":"boolean","parameters":{}}`},
		{"null parameters", `{"version":"1.0","id":"x","type":"boolean","parameters":null}`},
		{"missing truth point", `{"version":"1.0","id":"x","type":"numerical","parameters":{"falsity_point":0,"indeterminacy_point":1}}`},
		{"unknown parameter", `{"version":"1.0","id":"x","type":"numerical","parameters":{"falsity_point":0,"indeterminacy_point":1,"truth_point":2,"slope":3}}`},
		{"missing mappings", `{"version":"1.0","id":"x","type":"categorical","parameters":{}}`},
		{"incomplete triple", `{"version":"1.0","id":"x","type":"categorical","parameters":{"mappings":{"A":{"T":1,"I":0}}}}`},
		{"missing false_map", `{"version":"1.0","id":"x","type":"boolean","parameters":{"true_map":{"T":1,"I":0,"F":0}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, model.KindFormat) {
				t.Errorf("expected format error, got %v", err)
			}
		})
	}
}

func TestDecode_InvalidParameters(t *testing.T) {
	// Structurally valid documents whose values break mapper invariants
	tests := []struct {
		desc string
		doc  string
		kind model.Kind
	}{
		{"coinciding points", `{"version":"1.0","id":"x","type":"numerical","parameters":{"falsity_point":1,"indeterminacy_point":1,"truth_point":1}}`, model.KindArgument},
		{"triple does not sum", `{"version":"1.0","id":"x","type":"boolean","parameters":{"true_map":{"T":1,"I":1,"F":0},"false_map":{"T":0,"I":0,"F":1}}}`, model.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(TypeNumerical, "2.5")
	if err != nil || v.Kind() != KindNumber || v.Raw() != 2.5 {
		t.Errorf("ParseValue(numerical, 2.5) = %v, %v", v, err)
	}
	if _, err := ParseValue(TypeNumerical, "warm"); !errors.Is(err, model.KindDomain) {
		t.Errorf("expected domain error, got %v", err)
	}
	v, err = ParseValue(TypeBoolean, "yes")
	if err != nil || v.Kind() != KindText || v.String() != "yes" {
		t.Errorf("ParseValue(boolean, yes) = %v, %v", v, err)
	}
}
