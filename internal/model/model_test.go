package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("loading mapper: %w", LookupError("UNKNOWN", "label %q not found", "UNKNOWN"))

	if !errors.Is(err, KindLookup) {
		t.Error("expected wrapped error to match KindLookup")
	}
	if errors.Is(err, KindDomain) {
		t.Error("lookup error must not match KindDomain")
	}
	if KindOf(err) != KindLookup {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf(plain) should be empty")
	}

	var e *Error
	if !errors.As(err, &e) || e.Subject != "UNKNOWN" {
		t.Errorf("expected subject UNKNOWN, got %+v", e)
	}

	cause := errors.New("unexpected EOF")
	wrapped := WrapFormat(cause, "decode %s", "doc")
	if !errors.Is(wrapped, cause) || !IsKind(wrapped, KindFormat) {
		t.Errorf("WrapFormat lost cause or kind: %v", wrapped)
	}
	if got, want := wrapped.Error(), "format error: decode doc: unexpected EOF"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestNewOutcome(t *testing.T) {
	o, err := NewOutcome("bafk-decision", Triple{T: 1}, OutcomeSuccess, "settlement-oracle", testTime)
	if err != nil {
		t.Fatalf("NewOutcome: %v", err)
	}
	entry := o.Judgment.Provenance()[0]
	if entry.SourceID() != "settlement-oracle" {
		t.Errorf("unexpected source %q", entry.SourceID())
	}
	if entry.String(KeyLinksToJudgmentID) != "bafk-decision" || entry.String(KeyOutcomeType) != "success" {
		t.Errorf("outcome entry missing link fields: %v", entry)
	}

	tests := []struct {
		desc    string
		linksTo string
		typ     OutcomeType
		oracle  string
		tr      Triple
		kind    Kind
	}{
		{"no link", "", OutcomeFailure, "o", Triple{F: 1}, KindArgument},
		{"no oracle", "j", OutcomeFailure, "", Triple{F: 1}, KindArgument},
		{"bad type", "j", "exploded", "o", Triple{F: 1}, KindArgument},
		{"bad triple", "j", OutcomePartial, "o", Triple{T: 0.5}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewOutcome(tt.linksTo, tt.tr, tt.typ, tt.oracle, testTime)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cfg := DefaultConfig().Decision

	tests := []struct {
		desc string
		tr   Triple
		want Decision
	}{
		{"strong truth", Triple{T: 0.8, I: 0.1, F: 0.1}, DecisionApprove},
		{"at approve threshold", Triple{T: 0.7, I: 0.3}, DecisionApprove},
		{"high indeterminacy", Triple{T: 0.3, I: 0.6, F: 0.1}, DecisionReview},
		{"mostly false", Triple{T: 0.1, I: 0.2, F: 0.7}, DecisionReject},
		{"lukewarm", Triple{T: 0.4, I: 0.3, F: 0.3}, DecisionReject},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := Classify(tt.tr, cfg); got != tt.want {
				t.Errorf("Classify(%s) = %s, want %s", tt.tr, got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	tests := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"sensitivity above one", func(c *Config) { c.Fusion.Sensitivity = 1.5 }},
		{"negative sensitivity", func(c *Config) { c.Fusion.Sensitivity = -0.1 }},
		{"approve threshold", func(c *Config) { c.Decision.ApproveThreshold = 2 }},
		{"review threshold", func(c *Config) { c.Decision.ReviewThreshold = -1 }},
		{"no workers", func(c *Config) { c.Concurrency.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
