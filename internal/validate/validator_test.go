package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestValidator_ValidateFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "mapper.json", `{"version":"1.0","id":"sig","type":"boolean","parameters":{"true_map":{"T":1,"I":0,"F":0},"false_map":{"T":0,"I":0,"F":1}}}`),
		writeFile(t, dir, "mapper.yaml", "version: \"1.0\"\nid: temp\ntype: numerical\nparameters:\n  falsity_point: 35\n  indeterminacy_point: 22\n"),
		writeFile(t, dir, "judgment.json", `{"T":1,"I":0,"F":0,"provenance_chain":[{"source_id":"a","timestamp":"2025-01-01T00:00:00Z"}]}`),
		filepath.Join(dir, "missing.json"),
		writeFile(t, dir, "broken.yml", "version: [\n"),
	}

	results := NewValidator(2).ValidateFiles(context.Background(), paths, KindAuto)
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d out of order: %s", i, r.Path)
		}
	}

	if !results[0].OK() || results[0].Kind != KindMapper {
		t.Errorf("mapper.json: %+v", results[0])
	}
	if results[1].OK() || len(results[1].Issues) != 1 || results[1].Issues[0].Path != "parameters.truth_point" {
		t.Errorf("mapper.yaml: expected one truth_point issue, got %+v", results[1])
	}
	if !results[2].OK() || results[2].Kind != KindJudgment {
		t.Errorf("judgment.json: %+v", results[2])
	}
	if results[3].Error == "" {
		t.Error("missing.json: expected read error")
	}
	if results[4].Error == "" {
		t.Error("broken.yml: expected parse error")
	}
}

func TestValidator_ForcedKind(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "judgment.json", `{"T":1,"I":0,"F":0,"provenance_chain":[]}`)

	results := NewValidator(0).ValidateFiles(context.Background(), []string{path}, KindMapper)
	if results[0].Kind != KindMapper || results[0].OK() {
		t.Errorf("judgment checked as mapper should fail, got %+v", results[0])
	}
}

func TestValidator_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		paths = append(paths, writeFile(t, dir, name, `{}`))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With a one-slot semaphore at least some files observe the cancellation
	results := NewValidator(1).ValidateFiles(ctx, paths, KindMapper)
	for _, r := range results {
		if r.Error == "" && r.OK() {
			t.Errorf("%s: empty mapper document cannot be valid", r.Path)
		}
	}
}

func TestParseDocumentKind(t *testing.T) {
	tests := []struct {
		in      string
		want    DocumentKind
		wantErr bool
	}{
		{"", KindAuto, false},
		{"auto", KindAuto, false},
		{"Mapper", KindMapper, false},
		{"judgment", KindJudgment, false},
		{"outcome", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDocumentKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDocumentKind(%q) = %q, %v", tt.in, got, err)
		}
	}
}
