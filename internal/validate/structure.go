// Package validate reports the structural validity of mapper and judgment
// documents. It checks presence and JSON types of every field, the schema
// version and the type tag; it never builds a mapper or applies one.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Rule names the check an Issue failed
type Rule string

const (
	RuleSyntax   Rule = "syntax"   // Not parseable as a JSON object
	RuleRequired Rule = "required" // Field missing
	RuleType     Rule = "type"     // Field has the wrong JSON type
	RuleVersion  Rule = "version"  // Unsupported schema version
	RuleEnum     Rule = "enum"     // Value outside the allowed set
	RuleUnknown  Rule = "unknown"  // Field not part of the schema
)

// Issue is one structural problem found in a document
type Issue struct {
	Path    string `json:"path"` // Dotted path to the field, "" for the document root
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Rule, i.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", i.Path, i.Rule, i.Message)
}

// Valid reports whether no issues were found
func Valid(issues []Issue) bool {
	return len(issues) == 0
}

var (
	supportedVersions = map[string]bool{"1.0": true}
	mapperTypes       = []string{"numerical", "categorical", "boolean"}
)

// MapperDocument checks the structure of a serialized mapper
func MapperDocument(raw []byte) []Issue {
	root, issues := parseObject(raw)
	if root == nil {
		return issues
	}
	c := &checker{}

	if v, ok := c.requireString(root, "", "version"); ok && !supportedVersions[v] {
		c.add("version", RuleVersion, fmt.Sprintf("unsupported version %q", v))
	}
	if v, ok := c.requireString(root, "", "id"); ok && v == "" {
		c.add("id", RuleRequired, "id must not be empty")
	}
	typ, typeOK := c.requireString(root, "", "type")
	if typeOK && !contains(mapperTypes, typ) {
		c.add("type", RuleEnum, fmt.Sprintf("unknown mapper type %q", typ))
		typeOK = false
	}
	if md, ok := root["metadata"]; ok && md != nil {
		if _, isObj := md.(map[string]any); !isObj {
			c.add("metadata", RuleType, "metadata must be an object")
		}
	}

	params, paramsOK := c.requireObject(root, "", "parameters")
	if paramsOK && typeOK {
		switch typ {
		case "numerical":
			c.numericalParams(params)
		case "categorical":
			c.categoricalParams(params)
		case "boolean":
			c.booleanParams(params)
		}
	}

	return c.sorted()
}

// JudgmentDocument checks the structure of a serialized judgment
func JudgmentDocument(raw []byte) []Issue {
	root, issues := parseObject(raw)
	if root == nil {
		return issues
	}
	c := &checker{}

	for _, field := range []string{"T", "I", "F"} {
		c.requireNumber(root, "", field)
	}

	v, ok := root["provenance_chain"]
	switch {
	case !ok:
		c.add("provenance_chain", RuleRequired, "missing field")
	case v == nil:
		c.add("provenance_chain", RuleType, "must be an array")
	default:
		entries, isArr := v.([]any)
		if !isArr {
			c.add("provenance_chain", RuleType, "must be an array")
			break
		}
		for i, e := range entries {
			c.provenanceEntry(fmt.Sprintf("provenance_chain[%d]", i), e)
		}
	}

	return c.sorted()
}

func parseObject(raw []byte) (map[string]any, []Issue) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []Issue{{Rule: RuleSyntax, Message: err.Error()}}
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, []Issue{{Rule: RuleSyntax, Message: "document must be a JSON object"}}
	}
	return root, nil
}

// checker accumulates issues while walking a decoded document
type checker struct {
	issues []Issue
}

func (c *checker) add(path string, rule Rule, msg string) {
	c.issues = append(c.issues, Issue{Path: path, Rule: rule, Message: msg})
}

func (c *checker) sorted() []Issue {
	sort.SliceStable(c.issues, func(i, j int) bool { return c.issues[i].Path < c.issues[j].Path })
	return c.issues
}

func (c *checker) requireString(obj map[string]any, prefix, field string) (string, bool) {
	path := join(prefix, field)
	v, ok := obj[field]
	if !ok {
		c.add(path, RuleRequired, "missing field")
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		c.add(path, RuleType, "must be a string")
		return "", false
	}
	return s, true
}

func (c *checker) requireNumber(obj map[string]any, prefix, field string) bool {
	path := join(prefix, field)
	v, ok := obj[field]
	if !ok {
		c.add(path, RuleRequired, "missing field")
		return false
	}
	if _, ok := v.(float64); !ok {
		c.add(path, RuleType, "must be a number")
		return false
	}
	return true
}

func (c *checker) requireObject(obj map[string]any, prefix, field string) (map[string]any, bool) {
	path := join(prefix, field)
	v, ok := obj[field]
	if !ok {
		c.add(path, RuleRequired, "missing field")
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		c.add(path, RuleType, "must be an object")
		return nil, false
	}
	return m, true
}

func (c *checker) unknownFields(obj map[string]any, prefix string, allowed ...string) {
	for k := range obj {
		if !contains(allowed, k) {
			c.add(join(prefix, k), RuleUnknown, "field is not part of the schema")
		}
	}
}

func (c *checker) triple(obj map[string]any, path string) {
	for _, field := range []string{"T", "I", "F"} {
		c.requireNumber(obj, path, field)
	}
	c.unknownFields(obj, path, "T", "I", "F")
}

func (c *checker) numericalParams(p map[string]any) {
	for _, field := range []string{"falsity_point", "indeterminacy_point", "truth_point"} {
		c.requireNumber(p, "parameters", field)
	}
	if v, ok := p["clamp_to_range"]; ok {
		if _, isBool := v.(bool); !isBool {
			c.add("parameters.clamp_to_range", RuleType, "must be a boolean")
		}
	}
	c.unknownFields(p, "parameters", "falsity_point", "indeterminacy_point", "truth_point", "clamp_to_range")
}

func (c *checker) categoricalParams(p map[string]any) {
	if mappings, ok := c.requireObject(p, "parameters", "mappings"); ok {
		for label, v := range mappings {
			path := join("parameters.mappings", label)
			tr, isObj := v.(map[string]any)
			if !isObj {
				c.add(path, RuleType, "must be an object with T, I and F")
				continue
			}
			c.triple(tr, path)
		}
	}
	if v, ok := p["default_judgment"]; ok && v != nil {
		tr, isObj := v.(map[string]any)
		if !isObj {
			c.add("parameters.default_judgment", RuleType, "must be an object with T, I and F")
		} else {
			c.triple(tr, "parameters.default_judgment")
		}
	}
	c.unknownFields(p, "parameters", "mappings", "default_judgment")
}

func (c *checker) booleanParams(p map[string]any) {
	for _, field := range []string{"true_map", "false_map"} {
		if tr, ok := c.requireObject(p, "parameters", field); ok {
			c.triple(tr, join("parameters", field))
		}
	}
	c.unknownFields(p, "parameters", "true_map", "false_map")
}

func (c *checker) provenanceEntry(path string, v any) {
	entry, ok := v.(map[string]any)
	if !ok {
		c.add(path, RuleType, "entry must be an object")
		return
	}

	src, hasSrc := entry["source_id"]
	op, hasOp := entry["operator_id"]
	if !hasSrc && !hasOp {
		c.add(path, RuleRequired, "entry needs source_id or operator_id")
	}
	if hasSrc {
		if _, isStr := src.(string); !isStr {
			c.add(join(path, "source_id"), RuleType, "must be a string")
		}
	}
	if hasOp {
		if _, isStr := op.(string); !isStr {
			c.add(join(path, "operator_id"), RuleType, "must be a string")
		}
	}
	c.requireString(entry, path, "timestamp")
}

func join(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
