// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package schema loads, validates, caches, and watches the versioned PALD
// attribute schema. The registry never fails towards callers: a missing or
// malformed schema file degrades to the built-in default schema and records
// an error event instead.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gitte-labs/pald/pkg/pald"
)

// Descriptor describes one schema field: permitted value types (a
// disjunction), an optional enumerated value set, an optional numeric
// range, and optional nested properties for object-typed fields.
type Descriptor struct {
	Types      []string               `json:"type,omitempty"`
	Enum       []any                  `json:"enum,omitempty"`
	Minimum    *float64               `json:"minimum,omitempty"`
	Maximum    *float64               `json:"maximum,omitempty"`
	Properties map[string]*Descriptor `json:"properties,omitempty"`
}

// UnmarshalJSON accepts "type" as either a single string or an array of
// strings, matching both schema file dialects.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       json.RawMessage        `json:"type"`
		Enum       []any                  `json:"enum"`
		Minimum    *float64               `json:"minimum"`
		Maximum    *float64               `json:"maximum"`
		Properties map[string]*Descriptor `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Enum = raw.Enum
	d.Minimum = raw.Minimum
	d.Maximum = raw.Maximum
	d.Properties = raw.Properties
	d.Types = nil
	if len(raw.Type) > 0 {
		var single string
		if err := json.Unmarshal(raw.Type, &single); err == nil {
			d.Types = []string{single}
		} else {
			var many []string
			if err := json.Unmarshal(raw.Type, &many); err != nil {
				return fmt.Errorf("field descriptor: type must be string or string array")
			}
			d.Types = many
		}
	}
	return nil
}

// Schema is the parsed attribute schema: the three fixed sections, each a
// mapping from field name to descriptor, plus a content-hash version.
type Schema struct {
	Sections map[string]map[string]*Descriptor
	Version  string
}

// Parse builds a Schema from a JSON document in either the direct shape
// (sections at the root) or the wrapped shape (sections under "properties").
// All three sections must be present.
func Parse(data []byte) (*Schema, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema is not a JSON object: %w", err)
	}

	// Wrapped form: sections live under a "properties" key.
	if props, ok := doc["properties"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(props, &inner); err != nil {
			return nil, fmt.Errorf("schema properties is not an object: %w", err)
		}
		if containsSections(inner) {
			doc = inner
		}
	}

	sections := make(map[string]map[string]*Descriptor)
	for _, name := range pald.Sections {
		raw, ok := doc[name]
		if !ok {
			return nil, fmt.Errorf("schema missing required section %q", name)
		}
		var fields map[string]*Descriptor
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("schema section %q is malformed: %w", name, err)
		}
		sections[name] = fields
	}

	// Unknown top-level sections are permitted; they surface as warnings
	// when a record uses them, not as parse failures.
	for name, raw := range doc {
		if _, known := sections[name]; known {
			continue
		}
		var fields map[string]*Descriptor
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue // metadata keys like "$schema" or "title"
		}
		sections[name] = fields
	}

	return &Schema{Sections: sections, Version: versionHash(sections)}, nil
}

// versionHash derives the schema version from the canonical JSON encoding
// of the sections. encoding/json sorts map keys, so the hash is stable.
func versionHash(sections map[string]map[string]*Descriptor) string {
	data, err := json.Marshal(sections)
	if err != nil {
		return "unversioned"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// FieldCount returns the number of top-level fields across all sections,
// the denominator for extraction fill rates.
func (s *Schema) FieldCount() int {
	n := 0
	for _, fields := range s.Sections {
		n += len(fields)
	}
	return n
}

// FieldPaths returns every "section.field" path the schema defines, sorted.
func (s *Schema) FieldPaths() []string {
	var paths []string
	for section, fields := range s.Sections {
		for field := range fields {
			paths = append(paths, section+"."+field)
		}
	}
	sort.Strings(paths)
	return paths
}

// Descriptor resolves a "section.field" path. Nil when undefined.
func (s *Schema) Descriptor(section, field string) *Descriptor {
	fields, ok := s.Sections[section]
	if !ok {
		return nil
	}
	return fields[field]
}

// ValidateRecord checks a record against the schema. Type and range
// violations are errors; enum deviations and unknown sections or fields
// are warnings. Violating values stay in the record.
func (s *Schema) ValidateRecord(rec pald.Record) []pald.ValidationIssue {
	var issues []pald.ValidationIssue

	for _, section := range sortedKeys(rec) {
		fields := rec[section]
		schemaFields, known := s.Sections[section]
		if !known {
			issues = append(issues, pald.ValidationIssue{
				Path:     section,
				Message:  "unknown section",
				Severity: pald.SeverityWarning,
			})
			continue
		}
		for _, field := range sortedKeys(fields) {
			value := fields[field]
			path := section + "." + field
			desc, ok := schemaFields[field]
			if !ok {
				issues = append(issues, pald.ValidationIssue{
					Path:     path,
					Message:  "field not defined in schema",
					Severity: pald.SeverityWarning,
				})
				continue
			}
			issues = append(issues, validateValue(path, value, desc)...)
		}
	}
	return issues
}

func validateValue(path string, value any, desc *Descriptor) []pald.ValidationIssue {
	var issues []pald.ValidationIssue

	if len(desc.Types) > 0 && !matchesAnyType(value, desc.Types) {
		issues = append(issues, pald.ValidationIssue{
			Path: path,
			Message: fmt.Sprintf("value of type %T does not satisfy descriptor type %s",
				value, strings.Join(desc.Types, "|")),
			Severity: pald.SeverityError,
		})
	}

	if num, ok := asFloat(value); ok {
		if desc.Minimum != nil && num < *desc.Minimum {
			issues = append(issues, pald.ValidationIssue{
				Path:     path,
				Message:  fmt.Sprintf("value %v below minimum %v", value, *desc.Minimum),
				Severity: pald.SeverityError,
			})
		}
		if desc.Maximum != nil && num > *desc.Maximum {
			issues = append(issues, pald.ValidationIssue{
				Path:     path,
				Message:  fmt.Sprintf("value %v above maximum %v", value, *desc.Maximum),
				Severity: pald.SeverityError,
			})
		}
	}

	if len(desc.Enum) > 0 && !enumContains(desc.Enum, value) {
		issues = append(issues, pald.ValidationIssue{
			Path:     path,
			Message:  fmt.Sprintf("value %v not in enumerated set", value),
			Severity: pald.SeverityWarning,
		})
	}

	if obj, ok := value.(map[string]any); ok && len(desc.Properties) > 0 {
		for _, name := range sortedKeys(obj) {
			nested := desc.Properties[name]
			nestedPath := path + "." + name
			if nested == nil {
				issues = append(issues, pald.ValidationIssue{
					Path:     nestedPath,
					Message:  "property not defined in schema",
					Severity: pald.SeverityWarning,
				})
				continue
			}
			issues = append(issues, validateValue(nestedPath, obj[name], nested)...)
		}
	}

	return issues
}

// matchesAnyType maps Go runtime types onto the language-agnostic type set
// {string, integer, number, boolean, object, array, null}.
func matchesAnyType(value any, types []string) bool {
	for _, t := range types {
		if matchesType(value, t) {
			return true
		}
	}
	return false
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == math.Trunc(v)
		}
		return false
	case "number":
		_, ok := asFloat(value)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "null":
		return value == nil
	}
	return false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// enumContains compares with numeric normalization so a record int matches
// a schema float and vice versa.
func enumContains(enum []any, value any) bool {
	vNum, vIsNum := asFloat(value)
	for _, e := range enum {
		if e == value {
			return true
		}
		if eNum, ok := asFloat(e); ok && vIsNum && eNum == vNum {
			return true
		}
	}
	return false
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsSections(doc map[string]json.RawMessage) bool {
	for _, name := range pald.Sections {
		if _, ok := doc[name]; !ok {
			return false
		}
	}
	return true
}
