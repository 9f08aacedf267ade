// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gitte-labs/pald/pkg/pald"
)

const (
	// maxPromptLen bounds the full compressed prompt.
	maxPromptLen = 200
	// maxClothingLen bounds the clothing component before joining.
	maxClothingLen = 50

	// fallbackPrompt is used when no record attribute yields a component.
	fallbackPrompt = "person"
)

// lifelikenessDescriptors renders the 1-7 lifelikeness scale back into
// prompt vocabulary.
var lifelikenessDescriptors = map[int]string{
	1: "very artificial",
	2: "artificial",
	3: "somewhat lifelike",
	4: "moderately lifelike",
	5: "lifelike",
	6: "very lifelike",
	7: "extremely lifelike",
}

var (
	articlePattern    = regexp.MustCompile(`\b(?:the|a|an)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// BuildPrompt condenses a record into a short comma-separated generation
// prompt. Components appear in a fixed order so identical records always
// produce identical prompts; articles are stripped and the result is
// capped at 200 characters.
func BuildPrompt(rec pald.Record) string {
	var parts []string
	add := func(s string) {
		s = cleanComponent(s)
		if s != "" {
			parts = append(parts, s)
		}
	}

	typ, _ := rec.Value("global_design_level.type")
	add(asString(typ))

	if cartoon, ok := rec.Value("global_design_level.cartoon"); ok {
		if m, ok := cartoon.(map[string]any); ok {
			add(asString(m["representation"]))
			add(asString(m["animation"]))
		}
	}
	for _, field := range []string{"object_type", "animal_type", "fantasy_figure_type"} {
		if v, ok := rec.Value("global_design_level." + field); ok {
			add(asString(v))
		}
	}

	if v, ok := rec.Value("middle_design_level.lifelikeness"); ok {
		if score, ok := asInt(v); ok {
			add(lifelikenessDescriptors[score])
		}
	}
	if v, ok := rec.Value("middle_design_level.role"); ok {
		add(asString(v))
	}
	if v, ok := rec.Value("middle_design_level.partial_representation"); ok {
		add(asString(v))
	}

	if v, ok := rec.Value("detailed_level.age"); ok {
		if n, ok := asInt(v); ok {
			add(fmt.Sprintf("%d years old", n))
		} else {
			add(asString(v))
		}
	}
	if v, ok := rec.Value("detailed_level.gender"); ok {
		add(asString(v))
	}
	if v, ok := rec.Value("detailed_level.clothing"); ok {
		if c := truncate(cleanComponent(asString(v)), maxClothingLen); c != "" {
			parts = append(parts, c)
		}
	}
	if v, ok := rec.Value("detailed_level.weight"); ok {
		add(asString(v))
	}

	if len(parts) == 0 {
		return fallbackPrompt
	}
	return truncate(strings.Join(parts, ", "), maxPromptLen)
}

// cleanComponent lowercases, strips articles and collapses whitespace.
func cleanComponent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = articlePattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " .,;")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimRight(s[:max-3], " ,") + "..."
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
