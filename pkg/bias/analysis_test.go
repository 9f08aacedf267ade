// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package bias

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/pald"
)

func rec(values map[string]any) pald.Record {
	r := pald.Record{}
	for path, v := range values {
		for i := 0; i < len(path); i++ {
			if path[i] == '.' {
				r.Set(path[:i], path[i+1:], v)
				break
			}
		}
	}
	return r
}

func TestAgeShift_LargeShiftFlagged(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	res := a.analyzeAgeShift(
		rec(map[string]any{"detailed_level.age": 25}),
		rec(map[string]any{"detailed_level.age": "elderly"}))

	assert.Equal(t, 25, res.Findings["description_age"])
	assert.Equal(t, 70, res.Findings["embodiment_age"])
	assert.Equal(t, 45, res.Findings["shift_years"])
	assert.Equal(t, 4, res.Findings["magnitude"])
	require.Len(t, res.Indicators, 1)
	assert.Contains(t, res.Indicators[0], "45 years")
	assert.NotEmpty(t, res.Recommendations)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestAgeShift_WithinTolerance(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	res := a.analyzeAgeShift(
		rec(map[string]any{"detailed_level.age": 30}),
		rec(map[string]any{"detailed_level.age": 33}))

	assert.Empty(t, res.Indicators)
	assert.Empty(t, res.Recommendations)
}

func TestAgeShift_InsufficientData(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	res := a.analyzeAgeShift(
		rec(map[string]any{"detailed_level.age": 30}), pald.Record{})

	assert.Equal(t, true, res.Findings["insufficient_data"])
	assert.Equal(t, 0.2, res.Confidence)
}

func TestGenderConformity_CodedClothingAndRole(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	res := a.analyzeGenderConformity(pald.Record{}, rec(map[string]any{
		"detailed_level.gender":    "female",
		"detailed_level.clothing":  "a blue dress",
		"middle_design_level.role": "nurse",
	}))

	assert.Len(t, res.Indicators, 2)
	assert.NotEmpty(t, res.Recommendations)
	// gender, clothing and role available; other_features absent.
	assert.Equal(t, 0.75, res.Confidence)
}

func TestGenderConformity_SexualisationVocabulary(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	res := a.analyzeGenderConformity(pald.Record{}, rec(map[string]any{
		"detailed_level.gender":   "female",
		"detailed_level.clothing": "a tight miniskirt",
	}))

	assert.Equal(t, "tight", res.Findings["sexualization_term"])
	found := false
	for _, ind := range res.Indicators {
		if strings.Contains(ind, "sexualising vocabulary") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenderConformity_NoGenderNoIndicators(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	res := a.analyzeGenderConformity(pald.Record{}, rec(map[string]any{
		"detailed_level.clothing": "a suit",
	}))

	assert.Empty(t, res.Indicators)
	assert.Equal(t, true, res.Findings["insufficient_data"])
}

func TestEthnicityConsistency_NoProfiling(t *testing.T) {
	res := NewAnalyzer(nil, nil).analyzeEthnicityConsistency(pald.Record{}, pald.Record{})

	assert.Equal(t, false, res.Findings["profiling_performed"])
	assert.Empty(t, res.Indicators)
	assert.Equal(t, 1.0, res.Confidence)
	assert.NotEmpty(t, res.Recommendations)
}

func TestEthnicityConsistency_CrossRecordInconsistency(t *testing.T) {
	a := NewAnalyzer(nil, nil)

	res := a.analyzeEthnicityConsistency(
		rec(map[string]any{"detailed_level.other_features": "freckles"}),
		rec(map[string]any{"detailed_level.clothing": "a suit"}))

	// Marker paths are checked in order: clothing, weight, other_features.
	require.Len(t, res.Indicators, 2)
	assert.Contains(t, res.Indicators[0], "absent from description")
	assert.Contains(t, res.Indicators[1], "absent from embodiment")
	assert.Equal(t, false, res.Findings["profiling_performed"])

	consistent := a.analyzeEthnicityConsistency(
		rec(map[string]any{"detailed_level.clothing": "a suit"}),
		rec(map[string]any{"detailed_level.clothing": "a dark suit"}))
	assert.Empty(t, consistent.Indicators)
}

func TestOccupationalStereotypes_AlignmentFlagged(t *testing.T) {
	a := NewAnalyzer(nil, nil)

	aligned := a.analyzeOccupationalStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.role": "nurse",
		"detailed_level.gender":    "female",
	}))
	require.Len(t, aligned.Indicators, 1)
	assert.Contains(t, aligned.Indicators[0], "female-coded")

	counter := a.analyzeOccupationalStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.role": "engineer",
		"detailed_level.gender":    "female",
	}))
	assert.Empty(t, counter.Indicators)
}

func TestOccupationalStereotypes_AgeRolePattern(t *testing.T) {
	a := NewAnalyzer(nil, nil)

	res := a.analyzeOccupationalStereotypes(
		rec(map[string]any{"middle_design_level.competence": 6}),
		rec(map[string]any{
			"middle_design_level.role":       "judge",
			"middle_design_level.competence": 7,
			"detailed_level.age":             "elderly",
		}))

	assert.Equal(t, 6, res.Findings["description_competence"])
	assert.Equal(t, 7, res.Findings["embodiment_competence"])
	assert.Equal(t, "elderly", res.Findings["role_age_coding"])
	require.Len(t, res.Indicators, 1)
	assert.Contains(t, res.Indicators[0], "elderly-coded")

	// The same role embodied young carries no age-role pattern.
	young := a.analyzeOccupationalStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.role": "judge",
		"detailed_level.age":       28,
	}))
	assert.Empty(t, young.Indicators)
}

func TestAmbivalentStereotypes_ContradictoryPairings(t *testing.T) {
	a := NewAnalyzer(nil, nil)

	infantilised := a.analyzeAmbivalentStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.competence": 7,
		"detailed_level.clothing":        "a cute pinafore with pigtails",
	}))
	require.Len(t, infantilised.Indicators, 1)
	assert.Contains(t, infantilised.Indicators[0], "infantilising")
	assert.Equal(t, true, infantilised.Findings["high_competence"])

	toyLike := a.analyzeAmbivalentStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.role":         "professor",
		"middle_design_level.lifelikeness": 2,
	}))
	require.Len(t, toyLike.Indicators, 1)
	assert.Contains(t, toyLike.Indicators[0], "low lifelikeness")

	balanced := a.analyzeAmbivalentStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.competence":   6,
		"middle_design_level.lifelikeness": 6,
		"detailed_level.clothing":          "a lab coat",
	}))
	assert.Empty(t, balanced.Indicators)

	lowCompetence := a.analyzeAmbivalentStereotypes(pald.Record{}, rec(map[string]any{
		"middle_design_level.competence": 2,
		"detailed_level.clothing":        "a cute pinafore",
	}))
	assert.Empty(t, lowCompetence.Indicators)
}

func TestRunAll_IntersectionalAggregation(t *testing.T) {
	desc := rec(map[string]any{
		"detailed_level.age":       25,
		"detailed_level.gender":    "female",
		"middle_design_level.role": "nurse",
	})
	emb := rec(map[string]any{
		"detailed_level.age":              "elderly",
		"detailed_level.gender":           "female",
		"detailed_level.clothing":         "dress and heels",
		"middle_design_level.role":        "nurse",
		"middle_design_level.likeability": 6,
		"middle_design_level.competence":  2,
	})

	results := NewAnalyzer(nil, nil).RunAll(pald.AllAnalysisTypes, desc, emb)
	require.Len(t, results, 6)

	last := results[len(results)-1]
	assert.Equal(t, pald.AnalysisMultipleStereotyping, last.AnalysisType)
	assert.GreaterOrEqual(t, last.Findings["active_count"].(int), 3)
	require.NotEmpty(t, last.Indicators)
	assert.Contains(t, last.Indicators[0], "intersectional")
	assert.Greater(t, last.Confidence, 0.0)
}

func TestRunAll_AggregateAlwaysLast(t *testing.T) {
	results := NewAnalyzer(nil, nil).RunAll([]pald.AnalysisType{
		pald.AnalysisMultipleStereotyping,
		pald.AnalysisAgeShift,
	}, pald.Record{}, pald.Record{})

	require.Len(t, results, 2)
	assert.Equal(t, pald.AnalysisAgeShift, results[0].AnalysisType)
	assert.Equal(t, pald.AnalysisMultipleStereotyping, results[1].AnalysisType)
}

func TestRunAll_DurationFloor(t *testing.T) {
	results := NewAnalyzer(nil, nil).RunAll(
		[]pald.AnalysisType{pald.AnalysisEthnicityConsistency},
		pald.Record{}, pald.Record{})

	require.Len(t, results, 1)
	secs := results[0].Metadata["duration_seconds"].(float64)
	assert.GreaterOrEqual(t, secs, 0.001)
}

func TestMultipleStereotyping_DampenedWithoutCorroboration(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	prior := []pald.BiasResult{
		{AnalysisType: pald.AnalysisAgeShift, Confidence: 0.8, Indicators: []string{"x"}},
		{AnalysisType: pald.AnalysisGenderConformity, Confidence: 0.6},
	}

	res := a.analyzeMultipleStereotyping(prior)
	assert.InDelta(t, 0.7*0.5, res.Confidence, 1e-9)
	assert.Empty(t, res.Indicators)
}

func TestLoadVocabulary_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(heredoc.Doc(`
		age_shift_tolerance: 50
		female_coded_roles:
		  - weather presenter
	`)), 0o644))

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, 50, vocab.AgeShiftTolerance)
	assert.Equal(t, []string{"weather presenter"}, vocab.FemaleCodedRoles)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, vocab.HighScaleThreshold)

	a := NewAnalyzer(vocab, nil)
	res := a.analyzeAgeShift(
		rec(map[string]any{"detailed_level.age": 25}),
		rec(map[string]any{"detailed_level.age": 70}))
	assert.Empty(t, res.Indicators)
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	_, err := LoadVocabulary("/nonexistent/vocab.yaml")
	assert.Error(t, err)
}
