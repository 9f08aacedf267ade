// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package extract derives schema-conformant light records from free-text
// agent descriptions using deterministic keyword and pattern heuristics.
// Extraction never fails outright; unreadable input degrades to a minimal
// fallback record with a low confidence score.
package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/pald"
	"github.com/gitte-labs/pald/pkg/schema"
)

const (
	// lengthNorm is the text length at which the length component of the
	// confidence score saturates.
	lengthNorm = 500.0

	fallbackConfidence = 0.1
)

// Extractor turns description text into light records validated against
// the registry's current schema.
type Extractor struct {
	registry *schema.Registry
	logger   *zap.Logger
}

// Result carries the extracted record plus the compressed generation
// prompt derived from it.
type Result struct {
	Light            *pald.LightRecord
	CompressedPrompt string
}

func New(registry *schema.Registry, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{registry: registry, logger: logger}
}

// Extract runs the heuristic pipeline over the description and optional
// embodiment caption. It always returns a usable result: a heuristic
// failure or panic yields the fallback record instead of an error.
func (e *Extractor) Extract(description, embodiment string) (res *Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panicked, using fallback record",
				zap.Any("panic", r))
			res = e.fallback(description, fallbackConfidence,
				fmt.Sprintf("extraction failed: %v", r))
		}
	}()

	text := strings.ToLower(strings.TrimSpace(
		strings.TrimSpace(description) + " " + strings.TrimSpace(embodiment)))
	if text == "" {
		return e.fallback(description, 0, "empty input text")
	}

	rec := pald.Record{}
	e.extractGlobal(text, rec)
	e.extractMiddle(text, rec)
	e.extractDetailed(text, rec)
	rec.DropEmptySections()

	s := e.schema()
	light := &pald.LightRecord{
		Data:   rec,
		Issues: s.ValidateRecord(rec),
	}
	light.FilledFields = rec.FieldPaths()
	light.MissingFields = missingFields(s, light.FilledFields)
	light.Confidence = confidence(len(light.FilledFields), len(light.MissingFields), len(text))

	e.logger.Debug("extraction completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("filled", len(light.FilledFields)),
		zap.Float64("confidence", light.Confidence))

	return &Result{
		Light:            light,
		CompressedPrompt: BuildPrompt(rec),
	}
}

func (e *Extractor) schema() *schema.Schema {
	if e.registry != nil {
		return e.registry.Load()
	}
	return schema.DefaultSchema()
}

// extractGlobal classifies the agent type and, depending on the result,
// fills the type-specific fields. Nested cartoon attributes are only
// extracted once the cartoon classification is established.
func (e *Extractor) extractGlobal(text string, rec pald.Record) {
	typ, keyword := classifyType(text)
	if typ == "" {
		return
	}
	rec.Set(pald.SectionGlobal, "type", typ)

	switch typ {
	case "cartoon":
		cartoon := map[string]any{}
		if rep := extractRepresentation(text); rep != "" {
			cartoon["representation"] = rep
		}
		if animatedPattern.MatchString(text) {
			cartoon["animation"] = "animated"
		} else if staticPattern.MatchString(text) {
			cartoon["animation"] = "static"
		}
		if len(cartoon) > 0 {
			rec.Set(pald.SectionGlobal, "cartoon", cartoon)
		}
	case "object":
		rec.Set(pald.SectionGlobal, "object_type", keyword)
	case "animal":
		rec.Set(pald.SectionGlobal, "animal_type", keyword)
	case "fantasy_figure":
		rec.Set(pald.SectionGlobal, "fantasy_figure_type", keyword)
	}
}

func (e *Extractor) extractMiddle(text string, rec pald.Record) {
	for _, field := range []string{"lifelikeness", "realism", "animation_level", "likeability", "competence"} {
		if score, ok := matchScale(text, field); ok {
			rec.Set(pald.SectionMiddle, field, score)
		}
	}
	if role := extractRole(text); role != "" {
		rec.Set(pald.SectionMiddle, "role", role)
	}
	if m := partialRepresentationPattern.FindStringSubmatch(text); m != nil {
		rec.Set(pald.SectionMiddle, "partial_representation", m[1])
	}
	if model := extractRoleModel(text); model != "" {
		rec.Set(pald.SectionMiddle, "role_model", model)
	}
}

func (e *Extractor) extractDetailed(text string, rec pald.Record) {
	if age, ok := extractAge(text); ok {
		rec.Set(pald.SectionDetailed, "age", age)
	}
	if gender := extractGender(text); gender != "" {
		rec.Set(pald.SectionDetailed, "gender", gender)
	}
	if clothing := extractClothing(text); clothing != "" {
		rec.Set(pald.SectionDetailed, "clothing", clothing)
	}
	for _, wk := range weightKeywords {
		if wk.regex.MatchString(text) {
			rec.Set(pald.SectionDetailed, "weight", wk.weight)
			break
		}
	}
	if features := extractFeatures(text); features != "" {
		rec.Set(pald.SectionDetailed, "other_features", features)
	}
}

// classifyType returns the agent type and the vocabulary keyword that
// decided it, or empty strings when nothing matches.
func classifyType(text string) (string, string) {
	for _, typ := range typeOrder {
		for _, kw := range typeKeywords[typ] {
			if matchKeyword(text, kw) {
				return typ, kw
			}
		}
	}
	return "", ""
}

func extractRepresentation(text string) string {
	for _, name := range knownCharacters {
		if matchKeyword(text, name) {
			return name
		}
	}
	if m := characterPattern.FindStringSubmatch(text); m != nil {
		rep := strings.TrimSpace(m[1])
		// Drop leading articles so "a mouse character" yields "mouse".
		for _, art := range []string{"a ", "an ", "the "} {
			rep = strings.TrimPrefix(rep, art)
		}
		if rep != "" && rep != "animated" && rep != "cartoon" {
			return rep
		}
	}
	return ""
}

func matchScale(text, field string) (int, bool) {
	for _, sp := range scalePatterns[field] {
		if sp.pattern.MatchString(text) {
			return sp.score, true
		}
	}
	return 0, false
}

func extractRole(text string) string {
	if m := roleAnchorPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, kw := range roleKeywords {
		if matchKeyword(text, kw) {
			return kw
		}
	}
	return ""
}

func extractRoleModel(text string) string {
	for _, p := range roleModelPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if len(v) >= 3 && len(v) < 50 {
			return v
		}
	}
	return ""
}

// extractAge prefers a numeric age; the word vocabulary only runs when no
// number is present so "old" in "30 years old" cannot misfire.
func extractAge(text string) (any, bool) {
	for _, p := range numericAgePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 && n < 150 {
				return n, true
			}
		}
	}
	for _, ak := range ageKeywords {
		if ak.regex.MatchString(text) {
			return ak.band, true
		}
	}
	return nil, false
}

func extractGender(text string) string {
	for _, gk := range genderKeywords {
		if gk.regex.MatchString(text) {
			return gk.gender
		}
	}
	return ""
}

func extractClothing(text string) string {
	if m := clothingAnchorPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	var items []string
	for _, item := range clothingItems {
		if matchKeyword(text, item) {
			items = append(items, item)
		}
	}
	return strings.Join(items, ", ")
}

func extractFeatures(text string) string {
	var features []string
	seen := map[string]bool{}
	add := func(f string) {
		f = strings.TrimSpace(f)
		if f != "" && !seen[f] {
			seen[f] = true
			features = append(features, f)
		}
	}
	for _, m := range featureColonPattern.FindAllStringSubmatch(text, -1) {
		add(m[1] + ": " + strings.TrimSpace(m[2]))
	}
	for _, m := range featureAdjectivePattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return strings.Join(features, "; ")
}

// confidence blends the record fill rate with a text-length component.
// Sparse extractions are penalised so a record with one or two fields
// never scores highly on length alone.
func confidence(filled, missing, textLen int) float64 {
	total := filled + missing
	if total == 0 {
		return 0
	}
	fillRate := float64(filled) / float64(total)
	lengthRate := float64(textLen) / lengthNorm
	if lengthRate > 1 {
		lengthRate = 1
	}
	c := 0.8*fillRate + 0.2*lengthRate
	switch {
	case filled <= 1:
		c *= 0.3
	case filled <= 3:
		c *= 0.6
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func missingFields(s *schema.Schema, filled []string) []string {
	filledSet := make(map[string]bool, len(filled))
	for _, p := range filled {
		filledSet[p] = true
	}
	var missing []string
	for _, p := range s.FieldPaths() {
		if !filledSet[p] {
			missing = append(missing, p)
		}
	}
	return missing
}

// fallback builds the minimal record returned when extraction cannot run.
// Gender and age are salvaged directly from the raw description where
// possible.
func (e *Extractor) fallback(description string, conf float64, reason string) *Result {
	rec := pald.Record{}
	rec.Set(pald.SectionGlobal, "type", "human")
	rec.Set(pald.SectionMiddle, "role", "assistant")

	text := strings.ToLower(description)
	if gender := extractGender(text); gender != "" {
		rec.Set(pald.SectionDetailed, "gender", gender)
	}
	if age, ok := extractAge(text); ok {
		rec.Set(pald.SectionDetailed, "age", age)
	}

	light := &pald.LightRecord{
		Data:       rec,
		Confidence: conf,
		Issues: []pald.ValidationIssue{{
			Path:     "",
			Message:  reason,
			Severity: pald.SeverityWarning,
		}},
	}
	light.FilledFields = rec.FieldPaths()
	light.MissingFields = missingFields(e.schema(), light.FilledFields)

	return &Result{Light: light, CompressedPrompt: fallbackPrompt}
}
