package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// issueKeys drops messages so tests pin only path and rule
func issueKeys(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	for i, is := range issues {
		out[i] = Issue{Path: is.Path, Rule: is.Rule}
	}
	return out
}

func TestMapperDocument_Valid(t *testing.T) {
	docs := map[string]string{
		"numerical": `{"version":"1.0","id":"temp","type":"numerical","parameters":{"falsity_point":35,"indeterminacy_point":22,"truth_point":18,"clamp_to_range":true},"metadata":{"domain":"ops"}}`,
		"categorical": `{"version":"1.0","id":"kyc","type":"categorical","parameters":{"mappings":{"VERIFIED":{"T":1,"I":0,"F":0}},"default_judgment":null}}`,
		"boolean": `{"version":"1.0","id":"sig","type":"boolean","parameters":{"true_map":{"T":1,"I":0,"F":0},"false_map":{"T":0,"I":0,"F":1}}}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			if issues := MapperDocument([]byte(doc)); !Valid(issues) {
				t.Errorf("expected no issues, got %v", issues)
			}
		})
	}
}

func TestMapperDocument_Issues(t *testing.T) {
	tests := []struct {
		desc string
		doc  string
		want []Issue
	}{
		{
			desc: "not json",
			doc:  `{"version":`,
			want: []Issue{{Rule: RuleSyntax}},
		},
		{
			desc: "not an object",
			doc:  `"mapper"`,
			want: []Issue{{Rule: RuleSyntax}},
		},
		{
			desc: "everything missing",
			doc:  `{}`,
			want: []Issue{
				{Path: "id", Rule: RuleRequired},
				{Path: "parameters", Rule: RuleRequired},
				{Path: "type", Rule: RuleRequired},
				{Path: "version", Rule: RuleRequired},
			},
		},
		{
			desc: "wrong version and type",
			doc:  `{"version":"2.0","id":"x","type":"fuzzy","parameters":{}}`,
			want: []Issue{
				{Path: "type", Rule: RuleEnum},
				{Path: "version", Rule: RuleVersion},
			},
		},
		{
			desc: "ill-typed top level",
			doc:  `{"version":1,"id":"","type":"boolean","parameters":[],"metadata":"x"}`,
			want: []Issue{
				{Path: "id", Rule: RuleRequired},
				{Path: "metadata", Rule: RuleType},
				{Path: "parameters", Rule: RuleType},
				{Path: "version", Rule: RuleType},
			},
		},
		{
			desc: "numerical parameters",
			doc:  `{"version":"1.0","id":"x","type":"numerical","parameters":{"falsity_point":"35","truth_point":18,"clamp_to_range":"yes","slope":2}}`,
			want: []Issue{
				{Path: "parameters.clamp_to_range", Rule: RuleType},
				{Path: "parameters.falsity_point", Rule: RuleType},
				{Path: "parameters.indeterminacy_point", Rule: RuleRequired},
				{Path: "parameters.slope", Rule: RuleUnknown},
			},
		},
		{
			desc: "categorical parameters",
			doc:  `{"version":"1.0","id":"x","type":"categorical","parameters":{"mappings":{"A":{"T":1,"I":0},"B":3},"default_judgment":[1]}}`,
			want: []Issue{
				{Path: "parameters.default_judgment", Rule: RuleType},
				{Path: "parameters.mappings.A.F", Rule: RuleRequired},
				{Path: "parameters.mappings.B", Rule: RuleType},
			},
		},
		{
			desc: "boolean parameters",
			doc:  `{"version":"1.0","id":"x","type":"boolean","parameters":{"true_map":{"T":1,"I":0,"F":0,"X":0}}}`,
			want: []Issue{
				{Path: "parameters.false_map", Rule: RuleRequired},
				{Path: "parameters.true_map.X", Rule: RuleUnknown},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := issueKeys(MapperDocument([]byte(tt.doc)))
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJudgmentDocument(t *testing.T) {
	tests := []struct {
		desc string
		doc  string
		want []Issue
	}{
		{
			desc: "valid",
			doc:  `{"T":0.7,"I":0.2,"F":0.1,"provenance_chain":[{"source_id":"a","timestamp":"2025-01-01T00:00:00Z"},{"operator_id":"cawa-v1","timestamp":"2025-01-01T00:00:01Z","weights":[1]}]}`,
			want: nil,
		},
		{
			desc: "missing components",
			doc:  `{"T":"0.7","provenance_chain":[]}`,
			want: []Issue{
				{Path: "F", Rule: RuleRequired},
				{Path: "I", Rule: RuleRequired},
				{Path: "T", Rule: RuleType},
			},
		},
		{
			desc: "chain not an array",
			doc:  `{"T":1,"I":0,"F":0,"provenance_chain":{}}`,
			want: []Issue{{Path: "provenance_chain", Rule: RuleType}},
		},
		{
			desc: "missing chain",
			doc:  `{"T":1,"I":0,"F":0}`,
			want: []Issue{{Path: "provenance_chain", Rule: RuleRequired}},
		},
		{
			desc: "bad entries",
			doc:  `{"T":1,"I":0,"F":0,"provenance_chain":[7,{"timestamp":"t"},{"source_id":5}]}`,
			want: []Issue{
				{Path: "provenance_chain[0]", Rule: RuleType},
				{Path: "provenance_chain[1]", Rule: RuleRequired},
				{Path: "provenance_chain[2].source_id", Rule: RuleType},
				{Path: "provenance_chain[2].timestamp", Rule: RuleRequired},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := issueKeys(JudgmentDocument([]byte(tt.doc)))
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIssue_String(t *testing.T) {
	root := Issue{Rule: RuleSyntax, Message: "bad"}
	if got := root.String(); got != "[syntax] bad" {
		t.Errorf("unexpected %q", got)
	}
	field := Issue{Path: "id", Rule: RuleRequired, Message: "missing field"}
	if got := field.String(); got != "id: [required] missing field" {
		t.Errorf("unexpected %q", got)
	}
}
