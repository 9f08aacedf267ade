// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package bias runs deferred multi-dimensional stereotype analyses over
// description/embodiment record pairs. Analyses are heuristic and
// vocabulary-driven; each produces findings, indicators and a confidence
// score, and a failure in one analysis never aborts the others.
package bias

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/pald"
)

// minAnalysisSeconds is the floor reported for per-analysis duration so
// sub-millisecond runs still show a nonzero cost.
const minAnalysisSeconds = 0.001

// Analyzer executes the individual bias analyses.
type Analyzer struct {
	vocab  *Vocabulary
	logger *zap.Logger
}

func NewAnalyzer(vocab *Vocabulary, logger *zap.Logger) *Analyzer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{vocab: vocab, logger: logger}
}

// RunAll executes the requested analyses in order. multiple_stereotyping
// aggregates over the other results, so it is always reordered to run
// last. A panicking analysis yields a failed result for that dimension
// only.
func (a *Analyzer) RunAll(types []pald.AnalysisType, desc, emb pald.Record) []pald.BiasResult {
	ordered := orderTypes(types)
	results := make([]pald.BiasResult, 0, len(ordered))
	for _, t := range ordered {
		results = append(results, a.runOne(t, desc, emb, results))
	}
	return results
}

func (a *Analyzer) runOne(t pald.AnalysisType, desc, emb pald.Record, prior []pald.BiasResult) (res pald.BiasResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("bias analysis panicked",
				zap.String("analysis", string(t)), zap.Any("panic", r))
			res = failedResult(t, fmt.Sprintf("analysis failed: %v", r))
		}
		secs := time.Since(start).Seconds()
		if secs < minAnalysisSeconds {
			secs = minAnalysisSeconds
		}
		if res.Metadata == nil {
			res.Metadata = map[string]any{}
		}
		res.Metadata["duration_seconds"] = secs
	}()

	switch t {
	case pald.AnalysisAgeShift:
		return a.analyzeAgeShift(desc, emb)
	case pald.AnalysisGenderConformity:
		return a.analyzeGenderConformity(desc, emb)
	case pald.AnalysisEthnicityConsistency:
		return a.analyzeEthnicityConsistency(desc, emb)
	case pald.AnalysisOccupationalStereotypes:
		return a.analyzeOccupationalStereotypes(desc, emb)
	case pald.AnalysisAmbivalentStereotypes:
		return a.analyzeAmbivalentStereotypes(desc, emb)
	case pald.AnalysisMultipleStereotyping:
		return a.analyzeMultipleStereotyping(prior)
	default:
		return failedResult(t, "unknown analysis type")
	}
}

// analyzeAgeShift compares the described age with the embodied age,
// resolving band words through the vocabulary's representative ages.
func (a *Analyzer) analyzeAgeShift(desc, emb pald.Record) pald.BiasResult {
	res := pald.BiasResult{
		AnalysisType: pald.AnalysisAgeShift,
		Findings:     map[string]any{},
	}

	descAge, descOK := a.resolveAge(desc)
	embAge, embOK := a.resolveAge(emb)
	if !descOK || !embOK {
		res.Findings["insufficient_data"] = true
		res.Confidence = 0.2
		return res
	}

	shift := embAge - descAge
	magnitude := int(math.Abs(float64(shift))) / 10
	res.Findings["description_age"] = descAge
	res.Findings["embodiment_age"] = embAge
	res.Findings["shift_years"] = shift
	res.Findings["magnitude"] = magnitude
	res.Confidence = 0.8

	if abs(shift) > a.vocab.AgeShiftTolerance {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("embodied age shifted by %d years from description", shift))
	}
	if magnitude > 2 {
		res.Recommendations = append(res.Recommendations,
			"review embodiment generation for systematic age distortion")
	}
	return res
}

// resolveAge turns detailed_level.age into a numeric age, mapping band
// words through the vocabulary.
func (a *Analyzer) resolveAge(rec pald.Record) (int, bool) {
	v, ok := rec.Value("detailed_level.age")
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		band := strings.ToLower(strings.TrimSpace(t))
		if age, ok := a.vocab.AgeEstimates[band]; ok {
			return age, true
		}
	}
	return 0, false
}

// analyzeGenderConformity checks whether the embodied presentation
// follows gender-coded clothing and role conventions. Confidence scales
// with how many of the four relevant fields are available.
func (a *Analyzer) analyzeGenderConformity(desc, emb pald.Record) pald.BiasResult {
	res := pald.BiasResult{
		AnalysisType: pald.AnalysisGenderConformity,
		Findings:     map[string]any{},
	}

	gender := stringField(emb, "detailed_level.gender")
	if gender == "" {
		gender = stringField(desc, "detailed_level.gender")
	}
	clothing := stringField(emb, "detailed_level.clothing")
	role := stringField(emb, "middle_design_level.role")
	if role == "" {
		role = stringField(desc, "middle_design_level.role")
	}
	features := stringField(emb, "detailed_level.other_features")

	available := 0
	for _, f := range []string{gender, clothing, role, features} {
		if f != "" {
			available++
		}
	}
	res.Confidence = float64(available) / 4.0
	res.Findings["gender"] = gender
	res.Findings["fields_available"] = available

	if gender == "" {
		res.Findings["insufficient_data"] = true
		return res
	}

	if item, ok := a.codedClothing(clothing, gender); ok {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("clothing %q follows a %s-coded convention", item, gender))
	}
	presentation := strings.TrimSpace(clothing + " " + features)
	if term, ok := containsAnySubstring(presentation, a.vocab.SexualizationTerms); ok {
		res.Findings["sexualization_term"] = term
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("presentation uses sexualising vocabulary %q", term))
	}
	if role != "" && a.roleCoding(role) == gender {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("role %q is stereotypically %s-coded", role, gender))
	}
	if len(res.Indicators) > 1 {
		res.Recommendations = append(res.Recommendations,
			"consider counter-stereotypical embodiment variants for this session")
	}
	return res
}

func (a *Analyzer) codedClothing(clothing, gender string) (string, bool) {
	if clothing == "" {
		return "", false
	}
	switch gender {
	case "female":
		return containsAnySubstring(clothing, a.vocab.FemaleCodedClothing)
	case "male":
		return containsAnySubstring(clothing, a.vocab.MaleCodedClothing)
	}
	return "", false
}

func (a *Analyzer) roleCoding(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if containsWord(a.vocab.FemaleCodedRoles, role) {
		return "female"
	}
	if containsWord(a.vocab.MaleCodedRoles, role) {
		return "male"
	}
	return ""
}

// appearanceMarkerPaths are the fields checked for technical consistency
// between the two records.
var appearanceMarkerPaths = []string{
	"detailed_level.clothing",
	"detailed_level.weight",
	"detailed_level.other_features",
}

// analyzeEthnicityConsistency checks that appearance markers present in
// the description also appear in the embodiment and vice versa. It
// deliberately performs no ethnicity profiling and documents that stance
// so downstream consumers see an explicit result rather than a silent
// gap.
func (a *Analyzer) analyzeEthnicityConsistency(desc, emb pald.Record) pald.BiasResult {
	res := pald.BiasResult{
		AnalysisType: pald.AnalysisEthnicityConsistency,
		Findings: map[string]any{
			"profiling_performed": false,
		},
		Confidence: 1.0,
		Recommendations: []string{
			"ethnicity representation requires governance review, not automated profiling",
		},
	}

	var inconsistent []string
	for _, path := range appearanceMarkerPaths {
		dv := stringField(desc, path)
		ev := stringField(emb, path)
		switch {
		case dv != "" && ev == "":
			inconsistent = append(inconsistent, path)
			res.Indicators = append(res.Indicators,
				fmt.Sprintf("appearance marker %s present in description but absent from embodiment", path))
		case dv == "" && ev != "":
			inconsistent = append(inconsistent, path)
			res.Indicators = append(res.Indicators,
				fmt.Sprintf("appearance marker %s present in embodiment but absent from description", path))
		}
	}
	res.Findings["inconsistent_markers"] = inconsistent
	return res
}

// analyzeOccupationalStereotypes flags role pairings that follow
// occupational stereotype coding, both gender-role and age-role, with
// the competence scores of both sides recorded for context.
func (a *Analyzer) analyzeOccupationalStereotypes(desc, emb pald.Record) pald.BiasResult {
	res := pald.BiasResult{
		AnalysisType: pald.AnalysisOccupationalStereotypes,
		Findings:     map[string]any{},
	}

	role := stringField(emb, "middle_design_level.role")
	if role == "" {
		role = stringField(desc, "middle_design_level.role")
	}
	gender := stringField(emb, "detailed_level.gender")
	if gender == "" {
		gender = stringField(desc, "detailed_level.gender")
	}
	if dc, ok := intField(desc, "middle_design_level.competence"); ok {
		res.Findings["description_competence"] = dc
	}
	if ec, ok := intField(emb, "middle_design_level.competence"); ok {
		res.Findings["embodiment_competence"] = ec
	}

	if role == "" {
		res.Findings["insufficient_data"] = true
		res.Confidence = 0.3
		return res
	}

	coding := a.roleCoding(role)
	res.Findings["role"] = role
	res.Findings["gender"] = gender
	res.Findings["role_coding"] = coding
	res.Confidence = 0.7

	if gender != "" && coding != "" && coding == gender {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("%s-coded role %q embodied as %s", coding, role, gender))
	}
	if band := a.roleAgeCoding(role); band != "" {
		res.Findings["role_age_coding"] = band
		if embBand, ok := a.ageBand(emb); ok && embBand == band {
			res.Indicators = append(res.Indicators,
				fmt.Sprintf("%s-coded role %q embodied as %s", band, role, embBand))
		}
	}
	if len(res.Indicators) > 0 {
		res.Recommendations = append(res.Recommendations,
			"vary role pairings across generated embodiments")
	}
	return res
}

// roleAgeCoding returns the age band a role is stereotypically coded
// for, or empty when it carries no age coding.
func (a *Analyzer) roleAgeCoding(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if containsWord(a.vocab.YoungCodedRoles, role) {
		return "young"
	}
	if containsWord(a.vocab.ElderCodedRoles, role) {
		return "elderly"
	}
	return ""
}

// ageBand buckets a record's resolved age into the coarse young/adult/
// elderly bands used for age-role patterns.
func (a *Analyzer) ageBand(rec pald.Record) (string, bool) {
	age, ok := a.resolveAge(rec)
	if !ok {
		return "", false
	}
	switch {
	case age < 30:
		return "young", true
	case age < 60:
		return "adult", true
	default:
		return "elderly", true
	}
}

// analyzeAmbivalentStereotypes contrasts competence markers (role and
// competence score) with presentation markers (clothing and
// lifelikeness) and flags contradictory pairings, such as a high-
// competence figure given an infantilising presentation.
func (a *Analyzer) analyzeAmbivalentStereotypes(desc, emb pald.Record) pald.BiasResult {
	res := pald.BiasResult{
		AnalysisType: pald.AnalysisAmbivalentStereotypes,
		Findings:     map[string]any{},
	}

	role := stringField(emb, "middle_design_level.role")
	if role == "" {
		role = stringField(desc, "middle_design_level.role")
	}
	competence, compOK := intField(emb, "middle_design_level.competence")
	if !compOK {
		competence, compOK = intField(desc, "middle_design_level.competence")
	}
	clothing := stringField(emb, "detailed_level.clothing")
	if clothing == "" {
		clothing = stringField(desc, "detailed_level.clothing")
	}
	lifelikeness, lifeOK := intField(emb, "middle_design_level.lifelikeness")

	available := 0
	if role != "" {
		available++
	}
	if compOK {
		available++
	}
	if clothing != "" {
		available++
	}
	if lifeOK {
		available++
	}
	res.Confidence = float64(available) / 4.0
	res.Findings["role"] = role
	res.Findings["fields_available"] = available
	if compOK {
		res.Findings["competence"] = competence
	}
	if lifeOK {
		res.Findings["lifelikeness"] = lifelikeness
	}

	highCompetence := (compOK && competence >= a.vocab.HighScaleThreshold) ||
		containsWord(a.vocab.CompetenceCodedRoles, strings.ToLower(role))
	if !highCompetence {
		return res
	}
	res.Findings["high_competence"] = true

	if term, ok := containsAnySubstring(clothing, a.vocab.InfantilizingTerms); ok {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("high competence paired with infantilising presentation %q", term))
	}
	if lifeOK && lifelikeness <= a.vocab.LowScaleThreshold {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("high competence paired with low lifelikeness (%d)", lifelikeness))
	}
	if len(res.Indicators) > 0 {
		res.Recommendations = append(res.Recommendations,
			"rebalance competence and presentation cues in the embodiment")
	}
	return res
}

// analyzeMultipleStereotyping aggregates the preceding results: three or
// more dimensions with indicators is treated as intersectional
// stereotyping. Its confidence derives from the prior confidences,
// dampened when little corroboration exists.
func (a *Analyzer) analyzeMultipleStereotyping(prior []pald.BiasResult) pald.BiasResult {
	res := pald.BiasResult{
		AnalysisType: pald.AnalysisMultipleStereotyping,
		Findings:     map[string]any{},
	}

	var active []string
	var confSum float64
	for _, p := range prior {
		confSum += p.Confidence
		if len(p.Indicators) > 0 {
			active = append(active, string(p.AnalysisType))
		}
	}
	sort.Strings(active)
	res.Findings["active_dimensions"] = active
	res.Findings["active_count"] = len(active)

	mean := 0.0
	if len(prior) > 0 {
		mean = confSum / float64(len(prior))
	}
	if len(active) >= 2 {
		res.Confidence = mean * 0.9
	} else {
		res.Confidence = mean * 0.5
	}

	if len(active) >= 3 {
		res.Indicators = append(res.Indicators,
			fmt.Sprintf("intersectional stereotyping across %d dimensions: %s",
				len(active), strings.Join(active, ", ")))
		res.Recommendations = append(res.Recommendations,
			"escalate this session for manual bias review")
	}
	return res
}

// orderTypes deduplicates the requested analyses and moves the aggregate
// multiple_stereotyping to the end.
func orderTypes(types []pald.AnalysisType) []pald.AnalysisType {
	seen := map[pald.AnalysisType]bool{}
	var ordered []pald.AnalysisType
	aggregate := false
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		if t == pald.AnalysisMultipleStereotyping {
			aggregate = true
			continue
		}
		ordered = append(ordered, t)
	}
	if aggregate {
		ordered = append(ordered, pald.AnalysisMultipleStereotyping)
	}
	return ordered
}

func failedResult(t pald.AnalysisType, reason string) pald.BiasResult {
	return pald.BiasResult{
		AnalysisType: t,
		Findings:     map[string]any{"error": reason},
		Confidence:   0,
		Metadata:     map[string]any{"failed": true},
	}
}

func stringField(rec pald.Record, path string) string {
	v, ok := rec.Value(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func intField(rec pald.Record, path string) (int, bool) {
	v, ok := rec.Value(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
