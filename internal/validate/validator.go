package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DocumentKind selects which schema a document is checked against
type DocumentKind string

const (
	KindAuto     DocumentKind = "auto"
	KindMapper   DocumentKind = "mapper"
	KindJudgment DocumentKind = "judgment"
)

// ParseDocumentKind validates a kind name; "" means auto
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch k := DocumentKind(strings.ToLower(s)); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindMapper, KindJudgment:
		return k, nil
	}
	return "", fmt.Errorf("unknown document kind %q (expected mapper, judgment or auto)", s)
}

// DetectKind guesses the schema from the top-level fields
func DetectKind(raw []byte) DocumentKind {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return KindMapper
	}
	if _, ok := probe["provenance_chain"]; ok {
		return KindJudgment
	}
	return KindMapper
}

// Check validates one JSON document against kind
func Check(raw []byte, kind DocumentKind) (DocumentKind, []Issue) {
	if kind == KindAuto || kind == "" {
		kind = DetectKind(raw)
	}
	if kind == KindJudgment {
		return kind, JudgmentDocument(raw)
	}
	return kind, MapperDocument(raw)
}

// Result is the outcome of validating one file
type Result struct {
	Path   string       `json:"path"`
	Kind   DocumentKind `json:"kind"`
	Issues []Issue      `json:"issues"`
	Error  string       `json:"error,omitempty"` // File could not be read or converted
}

// OK reports whether the file was read and has no issues
func (r Result) OK() bool {
	return r.Error == "" && Valid(r.Issues)
}

// Validator checks document files concurrently
type Validator struct {
	maxWorkers int
}

// NewValidator creates a new validator
func NewValidator(maxWorkers int) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Validator{maxWorkers: maxWorkers}
}

// ValidateFiles validates every file concurrently. Results keep the order of paths.
func (v *Validator) ValidateFiles(ctx context.Context, paths []string, kind DocumentKind) []Result {
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	var wg sync.WaitGroup

	// Create semaphore to limit concurrent reads
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, p := range paths {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Result{Path: path, Kind: kind, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.validateFile(path, kind)
		}(i, p)
	}

	wg.Wait()

	return results
}

func (v *Validator) validateFile(path string, kind DocumentKind) Result {
	result := Result{Path: path, Kind: kind}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("read file: %v", err)
		return result
	}

	data, err = ToJSON(path, data)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Kind, result.Issues = Check(data, kind)
	return result
}

// ToJSON converts YAML documents (by extension) to JSON; JSON passes through
func ToJSON(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return data, nil
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(tree); err != nil {
		return nil, fmt.Errorf("convert YAML to JSON: %w", err)
	}
	return buf.Bytes(), nil
}
