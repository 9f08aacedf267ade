// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package diff classifies field-level agreement between a description
// record and an embodiment record. Every field present in either record
// is classified as matched, hallucinated (embodiment-only or conflicting)
// or missing (description-only), and the classification is condensed into
// a similarity score and a human-readable summary.
package diff

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/pald"
)

// numericTolerance is the absolute difference within which two numeric
// values still count as a match. Scale fields are 1-7 integers, so one
// step of disagreement is tolerated.
const numericTolerance = 1.0

// similarity weights: hallucinations cost half a match, missing fields
// cost 0.8 of a match.
const (
	hallucinationWeight = 0.5
	missingWeight       = 0.8
)

// placeholderValues are string values treated as "not meaningfully
// filled" on either side of the comparison.
var placeholderValues = map[string]bool{
	"unknown":       true,
	"not specified": true,
	"n/a":           true,
	"none":          true,
	"null":          true,
}

// Comparer classifies description/embodiment record pairs.
type Comparer struct {
	logger *zap.Logger
	dmp    *diffmatchpatch.DiffMatchPatch
}

func New(logger *zap.Logger) *Comparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparer{logger: logger, dmp: diffmatchpatch.New()}
}

// Compare walks the union of field paths in both records and classifies
// each one. It never returns an error; an internal failure produces a
// degraded result flagged in its metadata.
func (c *Comparer) Compare(description, embodiment pald.Record) (result *pald.DiffResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("diff classification panicked", zap.Any("panic", r))
			result = degradedResult(fmt.Sprintf("comparison failed: %v", r))
		}
	}()

	result = &pald.DiffResult{
		Matches:         map[string]pald.DiffEntry{},
		Hallucinations:  map[string]pald.DiffEntry{},
		Missing:         map[string]pald.DiffEntry{},
		Classifications: map[string]pald.Classification{},
		Metadata:        map[string]any{},
	}

	for _, path := range unionPaths(description, embodiment) {
		dv, _ := description.Value(path)
		ev, _ := embodiment.Value(path)
		dMeaningful := meaningful(dv)
		eMeaningful := meaningful(ev)

		switch {
		case !dMeaningful && !eMeaningful:
			// The partition is total over the union of paths, so a path
			// carrying only blanks still gets classified.
			result.Classifications[path] = pald.ClassMatch
			result.Matches[path] = pald.DiffEntry{
				Description: dv,
				Embodiment:  ev,
				Reason:      "no meaningful value on either side",
			}
		case dMeaningful && !eMeaningful:
			result.Classifications[path] = pald.ClassMissing
			result.Missing[path] = pald.DiffEntry{
				Description: dv,
				Reason:      "described but absent from embodiment",
			}
		case !dMeaningful && eMeaningful:
			result.Classifications[path] = pald.ClassHallucination
			result.Hallucinations[path] = pald.DiffEntry{
				Embodiment: ev,
				Reason:     "present only in embodiment",
			}
		case c.valuesMatch(dv, ev):
			result.Classifications[path] = pald.ClassMatch
			result.Matches[path] = pald.DiffEntry{Description: dv, Embodiment: ev}
		case moreSpecific(ev, dv):
			// A conflicting value only counts as hallucinated when the
			// embodiment asserts more than the description did.
			result.Classifications[path] = pald.ClassHallucination
			result.Hallucinations[path] = pald.DiffEntry{
				Description: dv,
				Embodiment:  ev,
				Reason:      c.mismatchReason(dv, ev),
			}
		default:
			result.Classifications[path] = pald.ClassMatch
			result.Matches[path] = pald.DiffEntry{
				Description: dv,
				Embodiment:  ev,
				Reason:      c.variantReason(dv, ev),
			}
		}
	}

	result.Similarity = similarity(
		len(result.Matches), len(result.Hallucinations), len(result.Missing))
	result.Summary = summarize(result)
	result.Metadata["compared_fields"] = len(result.Classifications)
	result.Metadata["match_count"] = len(result.Matches)
	result.Metadata["hallucination_count"] = len(result.Hallucinations)
	result.Metadata["missing_count"] = len(result.Missing)
	result.Metadata["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return result
}

// unionPaths merges the field paths of both records, sorted, deduplicated.
func unionPaths(a, b pald.Record) []string {
	seen := map[string]bool{}
	var paths []string
	for _, p := range a.FieldPaths() {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, p := range b.FieldPaths() {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	// FieldPaths is sorted per record; re-merge keeps global order.
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && paths[j] < paths[j-1]; j-- {
			paths[j], paths[j-1] = paths[j-1], paths[j]
		}
	}
	return paths
}

// meaningful reports whether a value carries actual content: nil, blank
// and placeholder strings, and empty containers do not.
func meaningful(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && !placeholderValues[s]
	case map[string]any:
		for _, inner := range t {
			if meaningful(inner) {
				return true
			}
		}
		return false
	case []any:
		for _, inner := range t {
			if meaningful(inner) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// valuesMatch applies the match semantics: case- and whitespace-
// insensitive string equality, numeric equality within tolerance, and
// element-wise recursion for containers.
func (c *Comparer) valuesMatch(a, b any) bool {
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.EqualFold(normalizeWS(as), normalizeWS(bs))
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return math.Abs(af-bf) <= numericTolerance
	}
	if am, aok := a.(map[string]any); aok {
		if bm, bok := b.(map[string]any); bok {
			if len(am) != len(bm) {
				return false
			}
			for k, av := range am {
				bv, present := bm[k]
				if !present || !c.valuesMatch(av, bv) {
					return false
				}
			}
			return true
		}
	}
	return reflect.DeepEqual(a, b)
}

// moreSpecific reports whether the embodiment value asserts more than
// the description value: a longer string or an object with more
// attributes. Other type pairs are never more specific.
func moreSpecific(ev, dv any) bool {
	if es, ok := ev.(string); ok {
		if ds, ok := dv.(string); ok {
			return len(normalizeWS(es)) > len(normalizeWS(ds))
		}
	}
	if em, ok := ev.(map[string]any); ok {
		if dm, ok := dv.(map[string]any); ok {
			return len(em) > len(dm)
		}
	}
	return false
}

// mismatchReason explains a hallucinated conflict, where the embodiment
// is the more specific side. String pairs get a character-level
// similarity from diff-match-patch so near-misses are distinguishable
// from outright contradictions.
func (c *Comparer) mismatchReason(dv, ev any) string {
	ds, dok := dv.(string)
	es, eok := ev.(string)
	if dok && eok {
		nd, ne := normalizeWS(strings.ToLower(ds)), normalizeWS(strings.ToLower(es))
		if strings.Contains(ne, nd) {
			return "embodiment adds detail beyond description"
		}
		return fmt.Sprintf("values conflict (text similarity %.2f)", c.StringSimilarity(nd, ne))
	}
	return "embodiment object carries more attributes"
}

// variantReason explains a conflicting pair accepted as a match because
// the embodiment is not the more specific side.
func (c *Comparer) variantReason(dv, ev any) string {
	ds, dok := dv.(string)
	es, eok := ev.(string)
	if dok && eok {
		nd, ne := normalizeWS(strings.ToLower(ds)), normalizeWS(strings.ToLower(es))
		return fmt.Sprintf("acceptable variant (text similarity %.2f)", c.StringSimilarity(nd, ne))
	}

	df, dok2 := asFloat(dv)
	ef, eok2 := asFloat(ev)
	if dok2 && eok2 {
		return fmt.Sprintf("numeric difference %.0f accepted as variant", math.Abs(df-ef))
	}
	return "differing values accepted as variant"
}

// StringSimilarity scores two strings as 1 minus the normalised
// Levenshtein distance, so 1 is identical and 0 shares nothing.
func (c *Comparer) StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	diffs := c.dmp.DiffMain(a, b, false)
	lev := c.dmp.DiffLevenshtein(diffs)
	return 1 - float64(lev)/float64(longest)
}

// similarity implements the weighted score over classified fields,
// clamped at zero and rounded to three decimals. No classified fields
// means nothing disagreed, which scores 1.0.
func similarity(matches, hallucinations, missing int) float64 {
	total := matches + hallucinations + missing
	if total == 0 {
		return 1.0
	}
	score := (float64(matches) -
		hallucinationWeight*float64(hallucinations) -
		missingWeight*float64(missing)) / float64(total)
	if score < 0 {
		score = 0
	}
	return math.Round(score*1000) / 1000
}

func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func degradedResult(reason string) *pald.DiffResult {
	return &pald.DiffResult{
		Matches:         map[string]pald.DiffEntry{},
		Hallucinations:  map[string]pald.DiffEntry{},
		Missing:         map[string]pald.DiffEntry{},
		Classifications: map[string]pald.Classification{},
		Similarity:      0,
		Summary:         reason,
		Metadata: map[string]any{
			"error":     true,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
}
