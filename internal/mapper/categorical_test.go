package mapper

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/trustmap/internal/model"
)

func statusTable() map[string]model.Triple {
	return map[string]model.Triple{
		"VERIFIED":   {T: 1, I: 0, F: 0},
		"PENDING":    {T: 0, I: 1, F: 0},
		"REJECTED":   {T: 0, I: 0, F: 1},
		"SUSPICIOUS": {T: 0.2, I: 0.3, F: 0.5},
	}
}

func TestCategoricalMapper_Lookup(t *testing.T) {
	m, err := NewCategoricalMapper("status", statusTable(), WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewCategoricalMapper: %v", err)
	}

	for label, want := range statusTable() {
		j, err := m.Map(label)
		if err != nil {
			t.Errorf("Map(%q): %v", label, err)
			continue
		}
		assertTriple(t, j, want)
	}

	_, err = m.Map("UNKNOWN")
	if !errors.Is(err, model.KindLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Subject != "UNKNOWN" {
		t.Errorf("expected lookup error naming UNKNOWN, got %v", err)
	}

	if _, err := m.Apply(Number(1)); !errors.Is(err, model.KindDomain) {
		t.Errorf("Apply(Number): expected domain error, got %v", err)
	}
}

func TestCategoricalMapper_Default(t *testing.T) {
	def := model.Triple{T: 0, I: 1, F: 0}
	m, err := NewCategoricalMapper("status", statusTable(), WithDefault(def), WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewCategoricalMapper: %v", err)
	}

	j, err := m.Map("UNKNOWN")
	if err != nil {
		t.Fatalf("Map(UNKNOWN): %v", err)
	}
	assertTriple(t, j, def)

	md, _ := j.Provenance()[0][model.KeyMetadata].(map[string]any)
	if md["defaulted"] != true {
		t.Errorf("expected defaulted marker in metadata, got %v", md)
	}

	j, err = m.Map("VERIFIED")
	if err != nil {
		t.Fatalf("Map(VERIFIED): %v", err)
	}
	md, _ = j.Provenance()[0][model.KeyMetadata].(map[string]any)
	if _, ok := md["defaulted"]; ok {
		t.Error("table hit must not be marked as defaulted")
	}
}

func TestCategoricalMapper_DefaultDoesNotMutateExtra(t *testing.T) {
	m, err := NewCategoricalMapper("status", statusTable(), WithDefault(model.Triple{I: 1}))
	if err != nil {
		t.Fatalf("NewCategoricalMapper: %v", err)
	}
	extra := map[string]any{"run_id": "r1"}
	if _, err := ApplyWithMetadata(m, Text("nope"), extra); err != nil {
		t.Fatalf("ApplyWithMetadata: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"run_id": "r1"}, extra); diff != "" {
		t.Errorf("extra was modified (-want +got):\n%s", diff)
	}
}

func TestNewCategoricalMapper_Invalid(t *testing.T) {
	tests := []struct {
		desc  string
		table map[string]model.Triple
		opts  []Option
		kind  model.Kind
	}{
		{"empty table without default", map[string]model.Triple{}, nil, model.KindArgument},
		{"nil table without default", nil, nil, model.KindArgument},
		{"bad category triple", map[string]model.Triple{"X": {T: 0.5, I: 0.5, F: 0.5}}, nil, model.KindValidation},
		{"bad default triple", statusTable(), []Option{WithDefault(model.Triple{T: 2})}, model.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewCategoricalMapper("c", tt.table, tt.opts...)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}

	if _, err := NewCategoricalMapper("c", nil, WithDefault(model.Triple{I: 1})); err != nil {
		t.Errorf("empty table with default should be accepted, got %v", err)
	}
}

func TestCategoricalMapper_CopiesTable(t *testing.T) {
	table := statusTable()
	m, err := NewCategoricalMapper("status", table)
	if err != nil {
		t.Fatalf("NewCategoricalMapper: %v", err)
	}
	table["VERIFIED"] = model.Triple{F: 1}
	delete(table, "PENDING")

	tr, ok := m.Lookup("VERIFIED")
	if !ok || tr != (model.Triple{T: 1}) {
		t.Errorf("caller mutation leaked into mapper: %v", tr)
	}
	if _, ok := m.Lookup("PENDING"); !ok {
		t.Error("caller delete leaked into mapper")
	}
}

func TestCategoricalMapper_Modifications(t *testing.T) {
	m, err := NewCategoricalMapper("status", statusTable())
	if err != nil {
		t.Fatalf("NewCategoricalMapper: %v", err)
	}

	added, err := m.AddCategory("ESCALATED", model.Triple{T: 0.1, I: 0.6, F: 0.3})
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if _, ok := added.Lookup("ESCALATED"); !ok {
		t.Error("expected ESCALATED in new mapper")
	}
	if _, ok := m.Lookup("ESCALATED"); ok {
		t.Error("AddCategory must not modify the receiver")
	}

	if _, err := m.AddCategory("VERIFIED", model.Triple{T: 1}); !errors.Is(err, model.KindArgument) {
		t.Errorf("duplicate AddCategory: expected argument error, got %v", err)
	}
	if _, err := m.AddCategory("BAD", model.Triple{T: 1, F: 1}); !errors.Is(err, model.KindValidation) {
		t.Errorf("invalid AddCategory: expected validation error, got %v", err)
	}

	removed, err := m.RemoveCategory("PENDING")
	if err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	want := []string{"REJECTED", "SUSPICIOUS", "VERIFIED"}
	if diff := cmp.Diff(want, removed.Categories()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if len(m.Categories()) != 4 {
		t.Error("RemoveCategory must not modify the receiver")
	}
	if _, err := m.RemoveCategory("MISSING"); !errors.Is(err, model.KindLookup) {
		t.Errorf("RemoveCategory(MISSING): expected lookup error, got %v", err)
	}

	withDefault, err := m.ReplaceDefault(model.Triple{I: 1})
	if err != nil {
		t.Fatalf("ReplaceDefault: %v", err)
	}
	if _, ok := withDefault.Default(); !ok {
		t.Error("expected default after ReplaceDefault")
	}
	if _, ok := m.Default(); ok {
		t.Error("ReplaceDefault must not modify the receiver")
	}
	dropped, err := withDefault.DropDefault()
	if err != nil {
		t.Fatalf("DropDefault: %v", err)
	}
	if _, ok := dropped.Default(); ok {
		t.Error("expected no default after DropDefault")
	}
}

func TestCategoricalMapper_RemoveLastCategoryNeedsDefault(t *testing.T) {
	m, err := NewCategoricalMapper("single", map[string]model.Triple{"ONLY": {T: 1}})
	if err != nil {
		t.Fatalf("NewCategoricalMapper: %v", err)
	}
	if _, err := m.RemoveCategory("ONLY"); !errors.Is(err, model.KindArgument) {
		t.Errorf("expected argument error when emptying a table without default, got %v", err)
	}
}
