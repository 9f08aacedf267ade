// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gitte-labs/pald/pkg/pald"
)

// consistencyBand maps a similarity score to the label used in summaries.
func consistencyBand(score float64) string {
	switch {
	case score >= 0.8:
		return "High"
	case score >= 0.6:
		return "Moderate"
	case score >= 0.4:
		return "Low"
	default:
		return "Poor"
	}
}

// summarize renders a deterministic multi-line summary: a header with
// the consistency band and similarity percent, then a count line per
// category with up to three example paths for the non-empty ones.
func summarize(r *pald.DiffResult) string {
	total := len(r.Classifications)
	if total == 0 {
		return "No comparable fields between description and embodiment."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s consistency: similarity %.1f%% across %d fields.",
		consistencyBand(r.Similarity), r.Similarity*100, total)
	fmt.Fprintf(&b, "\n%d matched fields%s.", len(r.Matches), examplePaths(r.Matches))
	fmt.Fprintf(&b, "\n%d potential hallucinations%s.", len(r.Hallucinations), examplePaths(r.Hallucinations))
	fmt.Fprintf(&b, "\n%d missing fields%s.", len(r.Missing), examplePaths(r.Missing))
	return b.String()
}

func examplePaths(entries map[string]pald.DiffEntry) string {
	if len(entries) == 0 {
		return ""
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if len(paths) > 3 {
		paths = paths[:3]
	}
	return " (e.g. " + strings.Join(paths, ", ") + ")"
}
