// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package bias

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the stereotype lexicons and thresholds the analyses
// score against. Research teams tune these per study, so every list can
// be overridden from a YAML file; absent keys keep their defaults.
type Vocabulary struct {
	// AgeEstimates maps age-band words to representative numeric ages
	// for shift computation.
	AgeEstimates map[string]int `yaml:"age_estimates"`

	// Role lists are lowercase role names with a strong gender coding in
	// the stereotype literature.
	FemaleCodedRoles []string `yaml:"female_coded_roles"`
	MaleCodedRoles   []string `yaml:"male_coded_roles"`

	// Age-coded roles for occupational age-role patterns.
	YoungCodedRoles []string `yaml:"young_coded_roles"`
	ElderCodedRoles []string `yaml:"elder_coded_roles"`

	// Roles that read as high-competence markers regardless of gender.
	CompetenceCodedRoles []string `yaml:"competence_coded_roles"`

	// Clothing terms with a strong gender coding.
	FemaleCodedClothing []string `yaml:"female_coded_clothing"`
	MaleCodedClothing   []string `yaml:"male_coded_clothing"`

	// Presentation terms flagged as sexualising or infantilising when
	// found in clothing or feature text.
	SexualizationTerms []string `yaml:"sexualization_terms"`
	InfantilizingTerms []string `yaml:"infantilizing_terms"`

	// Scale thresholds (1-7) for the ambivalent-stereotype quadrants.
	HighScaleThreshold int `yaml:"high_scale_threshold"`
	LowScaleThreshold  int `yaml:"low_scale_threshold"`

	// AgeShiftTolerance is the absolute year difference above which an
	// age shift is flagged.
	AgeShiftTolerance int `yaml:"age_shift_tolerance"`
}

// DefaultVocabulary returns the built-in lexicon.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		AgeEstimates: map[string]int{
			"child":       8,
			"teenager":    16,
			"young":       25,
			"young_adult": 25,
			"adult":       40,
			"middle-aged": 50,
			"elderly":     70,
		},
		FemaleCodedRoles: []string{
			"nurse", "teacher", "assistant", "librarian", "secretary",
			"receptionist", "caregiver",
		},
		MaleCodedRoles: []string{
			"engineer", "scientist", "professor", "pilot", "surgeon",
			"mechanic", "programmer",
		},
		YoungCodedRoles: []string{
			"intern", "student", "apprentice", "trainee", "assistant",
		},
		ElderCodedRoles: []string{
			"professor", "judge", "mentor", "director", "principal",
		},
		CompetenceCodedRoles: []string{
			"professor", "surgeon", "scientist", "engineer", "doctor",
			"judge", "expert",
		},
		FemaleCodedClothing: []string{
			"dress", "skirt", "blouse", "heels",
		},
		MaleCodedClothing: []string{
			"suit", "tie", "tuxedo",
		},
		SexualizationTerms: []string{
			"revealing", "low-cut", "tight", "miniskirt", "crop top",
			"lingerie", "seductive", "sexy",
		},
		InfantilizingTerms: []string{
			"cute", "childlike", "doll-like", "pigtails", "kawaii",
			"babyish", "toy-like",
		},
		HighScaleThreshold: 5,
		LowScaleThreshold:  3,
		AgeShiftTolerance:  5,
	}
}

// LoadVocabulary reads a YAML override file on top of the defaults.
// Only keys present in the file replace their default values.
func LoadVocabulary(path string) (*Vocabulary, error) {
	v := DefaultVocabulary()
	if path == "" {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bias vocabulary: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to parse bias vocabulary: %w", err)
	}
	if v.HighScaleThreshold <= 0 || v.LowScaleThreshold <= 0 {
		return nil, fmt.Errorf("bias vocabulary thresholds must be positive")
	}
	return v, nil
}

func containsWord(list []string, word string) bool {
	for _, w := range list {
		if w == word {
			return true
		}
	}
	return false
}

func containsAnySubstring(text string, list []string) (string, bool) {
	for _, w := range list {
		if w != "" && containsFold(text, w) {
			return w, true
		}
	}
	return "", false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
