package mapper

import (
	"errors"
	"testing"

	"github.com/ppiankov/trustmap/internal/model"
)

func TestNormalizeBool(t *testing.T) {
	tests := []struct {
		desc string
		in   Value
		want bool
	}{
		{"native true", Bool(true), true},
		{"native false", Bool(false), false},
		{"integer one", Integer(1), true},
		{"integer zero", Integer(0), false},
		{"integer negative", Integer(-3), true},
		{"text true", Text("true"), true},
		{"text TRUE padded", Text("  TRUE "), true},
		{"text yes", Text("Yes"), true},
		{"text valid", Text("valid"), true},
		{"text on", Text("on"), true},
		{"text 1", Text("1"), true},
		{"text false", Text("false"), false},
		{"text no", Text("n"), false},
		{"text invalid", Text("INVALID"), false},
		{"text off", Text("off"), false},
		{"text 0", Text("0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := NormalizeBool(tt.in)
			if err != nil {
				t.Fatalf("NormalizeBool(%v): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeBool(%v) = %t, expected %t", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeBool_Rejects(t *testing.T) {
	for _, v := range []Value{Text("maybe"), Text(""), Text("2"), Number(1), {}} {
		if _, err := NormalizeBool(v); !errors.Is(err, model.KindDomain) {
			t.Errorf("NormalizeBool(%v): expected domain error, got %v", v, err)
		}
	}
}

func TestBooleanMapper_Apply(t *testing.T) {
	trueMap := model.Triple{T: 0.9, I: 0.1, F: 0}
	falseMap := model.Triple{T: 0, I: 0.2, F: 0.8}
	m, err := NewBooleanMapper("sig-check", trueMap, falseMap, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewBooleanMapper: %v", err)
	}

	for _, v := range []Value{Bool(true), Integer(1), Text("true")} {
		j, err := m.Apply(v)
		if err != nil {
			t.Fatalf("Apply(%v): %v", v, err)
		}
		assertTriple(t, j, trueMap)
	}
	for _, v := range []Value{Bool(false), Integer(0), Text("no")} {
		j, err := m.Apply(v)
		if err != nil {
			t.Fatalf("Apply(%v): %v", v, err)
		}
		assertTriple(t, j, falseMap)
	}

	j, err := m.Map(true)
	if err != nil {
		t.Fatalf("Map(true): %v", err)
	}
	if got := j.Provenance()[0].SourceID(); got != "sig-check" {
		t.Errorf("expected source_id sig-check, got %q", got)
	}

	if _, err := m.Apply(Text("perhaps")); !errors.Is(err, model.KindDomain) {
		t.Errorf("Apply(perhaps): expected domain error, got %v", err)
	}
}

func TestNewBooleanMapper_Invalid(t *testing.T) {
	good := model.Triple{T: 1}
	bad := model.Triple{T: 0.5, I: 0.5, F: 0.5}

	if _, err := NewBooleanMapper("b", bad, good); !errors.Is(err, model.KindValidation) {
		t.Errorf("bad true_map: expected validation error, got %v", err)
	}
	if _, err := NewBooleanMapper("b", good, bad); !errors.Is(err, model.KindValidation) {
		t.Errorf("bad false_map: expected validation error, got %v", err)
	}
	if _, err := NewBooleanMapper("", good, good); !errors.Is(err, model.KindArgument) {
		t.Errorf("empty id: expected argument error, got %v", err)
	}
}
