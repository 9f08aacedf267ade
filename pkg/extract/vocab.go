// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package extract

import "regexp"

// Keyword tables and anchored patterns for the section heuristics. These
// are package-level so tests can cover them directly.

// typeKeywords maps agent-type enum values to their indicative vocabulary.
// The order of typeOrder decides which wins when several types match;
// "human" is only chosen when person-indicative vocabulary is present;
// there is no default type.
var typeKeywords = map[string][]string{
	"cartoon": {
		"cartoon", "anime", "comic", "animated", "toon", "mascot",
		"mickey mouse", "minnie mouse", "donald duck", "spongebob",
		"pikachu", "hello kitty",
	},
	"animal": {
		"animal", "dog", "cat", "bird", "owl", "fox", "rabbit", "bear",
		"lion", "tiger", "horse", "dolphin", "penguin",
	},
	"fantasy_figure": {
		"robot", "android", "dragon", "fairy", "wizard", "elf", "alien",
		"monster", "unicorn", "ghost", "genie",
	},
	"object": {
		"object", "pencil", "book", "lamp", "ball", "clock", "globe",
		"computer", "blackboard",
	},
	"human": {
		"person", "human", "man", "woman", "male", "female", "teacher",
		"tutor", "instructor", "professor", "coach", "mentor", "doctor",
		"nurse", "lady", "gentleman", "girl", "boy", "guy", "student",
	},
}

// typeOrder is the precedence for type classification; specific
// embodiment kinds beat the generic human vocabulary.
var typeOrder = []string{"cartoon", "animal", "fantasy_figure", "object", "human"}

// knownCharacters are cartoon identities recognised for
// global_design_level.cartoon.representation.
var knownCharacters = []string{
	"mickey mouse", "minnie mouse", "donald duck", "goofy", "spongebob",
	"pikachu", "hello kitty", "winnie the pooh", "bugs bunny", "tom and jerry",
}

// characterPattern captures "<name> character" phrasings when no known
// identity matches, e.g. "a Bluey character".
var characterPattern = regexp.MustCompile(`\b([a-z]+(?: [a-z]+)?) character\b`)

var (
	animatedPattern = regexp.MustCompile(`\b(?:animated|animation|moving|moves)\b`)
	staticPattern   = regexp.MustCompile(`\b(?:static|still|motionless)\b`)
)

// scalePattern is one ranked entry for a 1-7 integer scale. Patterns are
// tried in descending score order; the first match wins.
type scalePattern struct {
	score   int
	pattern *regexp.Regexp
}

var scalePatterns = map[string][]scalePattern{
	"lifelikeness": {
		{7, regexp.MustCompile(`\b(?:extremely lifelike|indistinguishable from (?:a )?(?:real )?(?:person|human))\b`)},
		{6, regexp.MustCompile(`\b(?:very|strikingly) lifelike\b`)},
		{5, regexp.MustCompile(`\b(?:lifelike|true to life)\b`)},
		{3, regexp.MustCompile(`\b(?:somewhat|vaguely) lifelike\b`)},
		{1, regexp.MustCompile(`\b(?:artificial|unnatural)\b`)},
	},
	"realism": {
		{7, regexp.MustCompile(`\b(?:photo-?realistic|hyper-?realistic)\b`)},
		{6, regexp.MustCompile(`\b(?:very|highly) realistic\b`)},
		{5, regexp.MustCompile(`\b(?:looks? |appears? )?realistic\b`)},
		{3, regexp.MustCompile(`\b(?:semi-?realistic|stylized)\b`)},
		{1, regexp.MustCompile(`\b(?:abstract|unrealistic)\b`)},
	},
	"animation_level": {
		{7, regexp.MustCompile(`\b(?:fully animated|constantly moving)\b`)},
		{6, regexp.MustCompile(`\b(?:very|highly) animated\b`)},
		{5, regexp.MustCompile(`\b(?:animated|moves around|moving)\b`)},
		{3, regexp.MustCompile(`\boccasionally mov(?:es|ing)\b`)},
		{1, regexp.MustCompile(`\b(?:static|motionless|still)\b`)},
	},
	"likeability": {
		{7, regexp.MustCompile(`\b(?:adorable|lovely|delightful)\b`)},
		{6, regexp.MustCompile(`\b(?:very (?:friendly|likeable)|charming)\b`)},
		{5, regexp.MustCompile(`\b(?:friendly|likeable|warm|kind)\b`)},
		{3, regexp.MustCompile(`\bneutral\b`)},
		{1, regexp.MustCompile(`\b(?:unfriendly|cold|unpleasant)\b`)},
	},
	"competence": {
		{7, regexp.MustCompile(`\b(?:highly competent|very competent|expert)\b`)},
		{6, regexp.MustCompile(`\b(?:skilled|professional|knowledgeable)\b`)},
		{5, regexp.MustCompile(`\b(?:competent|capable)\b`)},
		{3, regexp.MustCompile(`\bsomewhat competent\b`)},
		{1, regexp.MustCompile(`\b(?:incompetent|clueless)\b`)},
	},
}

// roleAnchorPattern captures an explicitly declared role, e.g.
// "role: teacher" or "works as a librarian".
var roleAnchorPattern = regexp.MustCompile(`\b(?:role\s*:|acts? as|works? as|serving as)\s*(?:a |an |the )?([a-z]+)`)

// roleKeywords is the role vocabulary scanned when no anchor matches.
var roleKeywords = []string{
	"teacher", "tutor", "professor", "instructor", "coach", "mentor",
	"advisor", "trainer", "guide", "companion", "librarian", "scientist",
	"engineer", "doctor", "nurse", "assistant",
}

var partialRepresentationPattern = regexp.MustCompile(
	`\b(head and shoulders|upper body|full body|half body|bust|portrait|face only|torso)\b`)

// roleModelPatterns capture explicit role-model references; values are
// additionally length-bounded to 3-49 characters.
var roleModelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brole model\s*[:\s]\s*(?:is\s+)?([^,.;]+)`),
	regexp.MustCompile(`\bmodell?ed (?:after|on)\s+([^,.;]+)`),
	regexp.MustCompile(`\binspired by\s+([^,.;]+)`),
}

var (
	numericAgePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,3})[- ]?years?[- ]?old\b`),
		regexp.MustCompile(`\baged?\s+(\d{1,3})\b`),
	}
	// ageKeywords maps age-band enum values to word-boundary vocabulary.
	ageKeywords = []struct {
		band  string
		regex *regexp.Regexp
	}{
		{"child", regexp.MustCompile(`\b(?:child|kid)\b`)},
		{"teenager", regexp.MustCompile(`\bteen(?:ager)?\b`)},
		{"young", regexp.MustCompile(`\b(?:young|youthful)\b`)},
		{"elderly", regexp.MustCompile(`\b(?:elderly|senior|old)\b`)},
		{"adult", regexp.MustCompile(`\b(?:adult|middle-aged|grown-up)\b`)},
	}
)

// genderKeywords is checked in order; the first category with a match
// wins.
var genderKeywords = []struct {
	gender string
	regex  *regexp.Regexp
}{
	{"non-binary", regexp.MustCompile(`\b(?:non-?binary|genderqueer|enby)\b`)},
	{"other", regexp.MustCompile(`\b(?:androgynous|genderless|agender)\b`)},
	{"female", regexp.MustCompile(`\b(?:female|woman|girl|lady|she|her|hers)\b`)},
	{"male", regexp.MustCompile(`\b(?:male|man|boy|guy|gentleman|he|him|his)\b`)},
}

// clothingAnchorPattern captures "wearing X" / "dressed in X" /
// "outfit: X" up to the next clause boundary.
var clothingAnchorPattern = regexp.MustCompile(`\b(?:wearing|dressed in|outfit\s*:)\s+([^,.;]{1,80})`)

// clothingItems is the fallback vocabulary, comma-joined in match order.
var clothingItems = []string{
	"dress", "suit", "blouse", "shirt", "t-shirt", "sweater", "jacket",
	"coat", "uniform", "skirt", "pants", "trousers", "jeans", "tie",
	"hat", "glasses", "scarf", "hoodie",
}

// weightKeywords maps body-type enum values to their vocabulary.
var weightKeywords = []struct {
	weight string
	regex  *regexp.Regexp
}{
	{"slim", regexp.MustCompile(`\b(?:slim|slender|thin)\b`)},
	{"athletic", regexp.MustCompile(`\b(?:athletic|muscular|fit)\b`)},
	{"heavy", regexp.MustCompile(`\b(?:heavy|overweight|plump|stout)\b`)},
	{"petite", regexp.MustCompile(`\bpetite\b`)},
	{"average", regexp.MustCompile(`\b(?:average|medium build)\b`)},
}

var (
	// featureColonPattern captures "hair: short brown" style annotations.
	featureColonPattern = regexp.MustCompile(`\b(hair|eyes|skin|voice)\s*:\s*([^,.;]{1,50})`)
	// featureAdjectivePattern captures "long blonde hair" style phrases.
	featureAdjectivePattern = regexp.MustCompile(
		`\b((?:(?:long|short|curly|straight|wavy|blonde?|brown|black|red|gr[ae]y|blue|green|hazel|dark|light|pale|tan|olive|deep|soft|warm)\s+)+(?:hair|eyes|skin|voice))\b`)
)

func matchKeyword(text, keyword string) bool {
	re, ok := keywordRegexCache[keyword]
	if !ok {
		return false
	}
	return re.MatchString(text)
}

// keywordRegexCache precompiles a word-boundary regex per keyword so
// vocabulary scans stay allocation-free per call.
var keywordRegexCache = func() map[string]*regexp.Regexp {
	cache := make(map[string]*regexp.Regexp)
	add := func(words []string) {
		for _, w := range words {
			if _, ok := cache[w]; !ok {
				cache[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
			}
		}
	}
	for _, words := range typeKeywords {
		add(words)
	}
	add(knownCharacters)
	add(roleKeywords)
	add(clothingItems)
	return cache
}()
