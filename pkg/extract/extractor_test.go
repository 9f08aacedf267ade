// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/pald"
)

func newTestExtractor() *Extractor {
	return New(nil, nil)
}

func TestExtract_HumanTeacher(t *testing.T) {
	res := newTestExtractor().Extract(
		"A friendly female teacher wearing a blue dress, she looks realistic and competent.", "")
	rec := res.Light.Data

	typ, _ := rec.Value("global_design_level.type")
	assert.Equal(t, "human", typ)

	role, _ := rec.Value("middle_design_level.role")
	assert.Equal(t, "teacher", role)

	gender, _ := rec.Value("detailed_level.gender")
	assert.Equal(t, "female", gender)

	clothing, ok := rec.Value("detailed_level.clothing")
	require.True(t, ok)
	assert.Contains(t, clothing.(string), "blue dress")

	assert.Contains(t, res.CompressedPrompt, "teacher")
	assert.Greater(t, res.Light.Confidence, 0.2)
}

func TestExtract_AnimatedCartoonCharacter(t *testing.T) {
	res := newTestExtractor().Extract(
		"An animated Mickey Mouse character that moves around", "")
	rec := res.Light.Data

	typ, _ := rec.Value("global_design_level.type")
	assert.Equal(t, "cartoon", typ)

	cartoon, ok := rec.Value("global_design_level.cartoon")
	require.True(t, ok)
	m := cartoon.(map[string]any)
	assert.Equal(t, "animated", m["animation"])
	assert.Contains(t, m["representation"], "mickey mouse")
}

func TestExtract_EmptyInput(t *testing.T) {
	res := newTestExtractor().Extract("   ", "")

	assert.Equal(t, 0.0, res.Light.Confidence)
	assert.Equal(t, "person", res.CompressedPrompt)
	require.NotEmpty(t, res.Light.Issues)
	assert.Equal(t, pald.SeverityWarning, res.Light.Issues[0].Severity)

	typ, _ := res.Light.Data.Value("global_design_level.type")
	assert.Equal(t, "human", typ)
	role, _ := res.Light.Data.Value("middle_design_level.role")
	assert.Equal(t, "assistant", role)
}

func TestExtract_EmbodimentCaptionContributes(t *testing.T) {
	res := newTestExtractor().Extract(
		"A helpful tutor.", "She is slim and wearing a white lab coat.")
	rec := res.Light.Data

	gender, _ := rec.Value("detailed_level.gender")
	assert.Equal(t, "female", gender)
	weight, _ := rec.Value("detailed_level.weight")
	assert.Equal(t, "slim", weight)
	clothing, _ := rec.Value("detailed_level.clothing")
	assert.Contains(t, clothing.(string), "white lab coat")
}

func TestExtract_NumericAge(t *testing.T) {
	res := newTestExtractor().Extract("A 35-year-old man with short brown hair.", "")
	rec := res.Light.Data

	age, ok := rec.Value("detailed_level.age")
	require.True(t, ok)
	assert.Equal(t, 35, age)

	features, _ := rec.Value("detailed_level.other_features")
	assert.Contains(t, features.(string), "brown hair")
}

func TestExtract_AgeBandWords(t *testing.T) {
	for text, want := range map[string]string{
		"an elderly professor":     "elderly",
		"a young woman":            "young",
		"a teenager with a hoodie": "teenager",
	} {
		res := newTestExtractor().Extract(text, "")
		age, ok := res.Light.Data.Value("detailed_level.age")
		require.True(t, ok, text)
		assert.Equal(t, want, age, text)
	}
}

func TestExtract_NumericAgeBeatsAgeWords(t *testing.T) {
	res := newTestExtractor().Extract("A man who is 30 years old.", "")
	age, _ := res.Light.Data.Value("detailed_level.age")
	assert.Equal(t, 30, age)
}

func TestExtract_ScaleRanking(t *testing.T) {
	res := newTestExtractor().Extract("A very realistic and highly competent person.", "")
	rec := res.Light.Data

	realism, _ := rec.Value("middle_design_level.realism")
	assert.Equal(t, 6, realism)
	competence, _ := rec.Value("middle_design_level.competence")
	assert.Equal(t, 7, competence)
}

func TestExtract_FantasyFigure(t *testing.T) {
	res := newTestExtractor().Extract("A wise old wizard with a long staff.", "")
	rec := res.Light.Data

	typ, _ := rec.Value("global_design_level.type")
	assert.Equal(t, "fantasy_figure", typ)
	kind, _ := rec.Value("global_design_level.fantasy_figure_type")
	assert.Equal(t, "wizard", kind)
}

func TestExtract_AnimalType(t *testing.T) {
	res := newTestExtractor().Extract("A cheerful owl that teaches vocabulary.", "")
	rec := res.Light.Data

	typ, _ := rec.Value("global_design_level.type")
	assert.Equal(t, "animal", typ)
	kind, _ := rec.Value("global_design_level.animal_type")
	assert.Equal(t, "owl", kind)
}

func TestExtract_NoTypeWithoutVocabulary(t *testing.T) {
	res := newTestExtractor().Extract("Something entirely abstract and indescribable.", "")
	_, ok := res.Light.Data.Value("global_design_level.type")
	assert.False(t, ok)
}

func TestExtract_SparseInputPenalty(t *testing.T) {
	sparse := newTestExtractor().Extract("teacher", "")
	rich := newTestExtractor().Extract(
		"A friendly female teacher wearing a blue dress, she is slim, 35 years old, "+
			"looks very realistic, competent and has long blonde hair.", "")

	assert.Less(t, sparse.Light.Confidence, 0.2)
	assert.Greater(t, rich.Light.Confidence, sparse.Light.Confidence)
}

func TestExtract_FilledAndMissingPartition(t *testing.T) {
	res := newTestExtractor().Extract("A friendly female teacher.", "")
	light := res.Light

	assert.NotEmpty(t, light.FilledFields)
	assert.NotEmpty(t, light.MissingFields)
	assert.Equal(t, 18, len(light.FilledFields)+len(light.MissingFields))

	for _, p := range light.FilledFields {
		assert.NotContains(t, light.MissingFields, p)
	}
}

func TestExtract_RoleModel(t *testing.T) {
	res := newTestExtractor().Extract("A tutor modeled after Marie Curie, very friendly.", "")
	model, ok := res.Light.Data.Value("middle_design_level.role_model")
	require.True(t, ok)
	assert.Equal(t, "marie curie", model)
}

func TestExtract_RoleModelTooShortRejected(t *testing.T) {
	res := newTestExtractor().Extract("A tutor inspired by me.", "")
	_, ok := res.Light.Data.Value("middle_design_level.role_model")
	assert.False(t, ok)
}

func TestConfidence_Formula(t *testing.T) {
	// 6 of 18 fields from 250 chars of text, no penalty.
	got := confidence(6, 12, 250)
	want := 0.8*(6.0/18.0) + 0.2*0.5
	assert.InDelta(t, want, got, 1e-9)

	// Single field triggers the strongest penalty.
	assert.InDelta(t, (0.8*(1.0/18.0)+0.2*1.0)*0.3, confidence(1, 17, 800), 1e-9)

	// Length component saturates at 500 characters.
	assert.Equal(t, confidence(6, 12, 500), confidence(6, 12, 5000))

	assert.Equal(t, 0.0, confidence(0, 0, 100))
}

func TestBuildPrompt_OrderAndArticles(t *testing.T) {
	rec := pald.Record{}
	rec.Set(pald.SectionGlobal, "type", "human")
	rec.Set(pald.SectionMiddle, "role", "teacher")
	rec.Set(pald.SectionMiddle, "lifelikeness", 7)
	rec.Set(pald.SectionDetailed, "age", 35)
	rec.Set(pald.SectionDetailed, "gender", "female")
	rec.Set(pald.SectionDetailed, "clothing", "a blue dress with the white collar")
	rec.Set(pald.SectionDetailed, "weight", "slim")

	prompt := BuildPrompt(rec)
	assert.Equal(t,
		"human, extremely lifelike, teacher, 35 years old, female, blue dress with white collar, slim",
		prompt)
	assert.LessOrEqual(t, len(prompt), 200)
	assert.NotRegexp(t, `\b(?:the|a|an)\b`, prompt)
}

func TestBuildPrompt_ClothingTruncated(t *testing.T) {
	rec := pald.Record{}
	rec.Set(pald.SectionDetailed, "clothing",
		strings.Repeat("very long embroidered ", 10))

	prompt := BuildPrompt(rec)
	assert.LessOrEqual(t, len(prompt), 53)
	assert.True(t, strings.HasSuffix(prompt, "..."))
}

func TestBuildPrompt_EmptyRecord(t *testing.T) {
	assert.Equal(t, "person", BuildPrompt(pald.Record{}))
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	res := newTestExtractor().Extract("A friendly female teacher wearing a blue dress.", "")
	for i := 0; i < 5; i++ {
		again := newTestExtractor().Extract("A friendly female teacher wearing a blue dress.", "")
		assert.Equal(t, res.CompressedPrompt, again.CompressedPrompt)
	}
}
