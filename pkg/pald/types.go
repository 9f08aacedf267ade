// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package pald defines the shared data model of the PALD analysis core:
// attribute records, diff results, bias jobs, and persisted artifacts.
// Types here are foundational structures with no dependencies on the
// processing packages, so every component can exchange them freely.
package pald

import (
	"sort"
	"time"
)

// The three fixed top-level sections of the PALD schema.
const (
	SectionGlobal   = "global_design_level"
	SectionMiddle   = "middle_design_level"
	SectionDetailed = "detailed_level"
)

// Sections lists the required top-level schema sections in canonical order.
var Sections = []string{SectionGlobal, SectionMiddle, SectionDetailed}

// Record is a sparse attribute mapping: section -> field -> value.
// Values are heterogeneous (string, int, float64, bool, nested
// map[string]any); conversions happen at validation sites.
type Record map[string]map[string]any

// Set stores a value, creating the section on first use.
func (r Record) Set(section, field string, value any) {
	if r[section] == nil {
		r[section] = make(map[string]any)
	}
	r[section][field] = value
}

// Value resolves a dotted "section.field" path. The second return reports
// whether the field is present at all.
func (r Record) Value(path string) (any, bool) {
	section, field, ok := splitPath(path)
	if !ok {
		return nil, false
	}
	fields, ok := r[section]
	if !ok {
		return nil, false
	}
	v, ok := fields[field]
	return v, ok
}

// FieldPaths returns all dotted "section.field" paths present in the
// record, sorted.
func (r Record) FieldPaths() []string {
	var paths []string
	for section, fields := range r {
		for field := range fields {
			paths = append(paths, section+"."+field)
		}
	}
	sort.Strings(paths)
	return paths
}

// DropEmptySections removes sections that carry no fields.
func (r Record) DropEmptySections() {
	for section, fields := range r {
		if len(fields) == 0 {
			delete(r, section)
		}
	}
}

// Clone returns a shallow-per-field copy of the record. Nested object
// values are copied one level deep, which covers the schema's tree shape.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for section, fields := range r {
		fs := make(map[string]any, len(fields))
		for field, v := range fields {
			if obj, ok := v.(map[string]any); ok {
				nested := make(map[string]any, len(obj))
				for k, nv := range obj {
					nested[k] = nv
				}
				fs[field] = nested
			} else {
				fs[field] = v
			}
		}
		out[section] = fs
	}
	return out
}

func splitPath(path string) (section, field string, ok bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return "", "", false
}

// IssueSeverity distinguishes hard validation errors from advisory
// warnings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ValidationIssue describes a single schema-conformance deviation. Values
// that violate their descriptor stay in the record; the issue records the
// deviation instead.
type ValidationIssue struct {
	Path     string        `json:"path"`
	Message  string        `json:"message"`
	Severity IssueSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	return string(i.Severity) + ": " + i.Path + ": " + i.Message
}

// LightRecord is the output of attribute extraction: a schema-conformant
// sparse record plus extraction metadata. Immutable after construction.
type LightRecord struct {
	Data          Record            `json:"data"`
	Confidence    float64           `json:"confidence"`
	FilledFields  []string          `json:"filled_fields"`
	MissingFields []string          `json:"missing_fields"`
	Issues        []ValidationIssue `json:"issues,omitempty"`
}

// ErrorStrings flattens the issues into the response's validation_errors
// form.
func (l *LightRecord) ErrorStrings() []string {
	out := make([]string, 0, len(l.Issues))
	for _, iss := range l.Issues {
		out = append(out, iss.String())
	}
	return out
}

// Classification labels one field path in a diff result.
type Classification string

const (
	ClassMatch         Classification = "match"
	ClassHallucination Classification = "hallucination"
	ClassMissing       Classification = "missing"
)

// DiffEntry captures both sides of one compared field plus a human reason.
type DiffEntry struct {
	Description any    `json:"description"`
	Embodiment  any    `json:"embodiment"`
	Reason      string `json:"reason"`
}

// DiffResult partitions the union of field paths of two records into
// matches, hallucinations (embodiment-only or more specific there), and
// missing fields (description-only). The three maps are disjoint and
// together cover every path of either input.
type DiffResult struct {
	Matches         map[string]DiffEntry      `json:"matches"`
	Hallucinations  map[string]DiffEntry      `json:"hallucinations"`
	Missing         map[string]DiffEntry      `json:"missing_fields"`
	Similarity      float64                   `json:"similarity_score"`
	Classifications map[string]Classification `json:"field_classifications"`
	Summary         string                    `json:"summary"`
	Metadata        map[string]any            `json:"metadata,omitempty"`
}

// AnalysisType names one deferred bias analysis dimension.
type AnalysisType string

const (
	AnalysisAgeShift                AnalysisType = "age_shift"
	AnalysisGenderConformity        AnalysisType = "gender_conformity"
	AnalysisEthnicityConsistency    AnalysisType = "ethnicity_consistency"
	AnalysisOccupationalStereotypes AnalysisType = "occupational_stereotypes"
	AnalysisAmbivalentStereotypes   AnalysisType = "ambivalent_stereotypes"
	AnalysisMultipleStereotyping    AnalysisType = "multiple_stereotyping"
)

// AllAnalysisTypes lists every analysis in execution order. The aggregate
// multiple_stereotyping entry always runs last within a job.
var AllAnalysisTypes = []AnalysisType{
	AnalysisAgeShift,
	AnalysisGenderConformity,
	AnalysisEthnicityConsistency,
	AnalysisOccupationalStereotypes,
	AnalysisAmbivalentStereotypes,
	AnalysisMultipleStereotyping,
}

// JobStatus is the lifecycle state of a bias job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// BiasResult is the outcome of one analysis run on a job.
type BiasResult struct {
	AnalysisType    AnalysisType   `json:"analysis_type"`
	Findings        map[string]any `json:"findings"`
	Confidence      float64        `json:"confidence"`
	Indicators      []string       `json:"indicators"`
	Recommendations []string       `json:"recommendations"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// BiasJob is a queued unit of deferred multi-dimensional analysis over a
// description/embodiment record pair.
type BiasJob struct {
	ID                string         `json:"job_id"`
	SessionID         string         `json:"session_id"`
	CreatedAt         time.Time      `json:"created_at"`
	DescriptionRecord Record         `json:"description_record"`
	EmbodimentRecord  Record         `json:"embodiment_record"`
	AnalysisTypes     []AnalysisType `json:"analysis_types"`
	Priority          int            `json:"priority"`
	Status            JobStatus      `json:"status"`
	Results           []BiasResult   `json:"results,omitempty"`
	Error             string         `json:"error,omitempty"`
	ProcessedAt       *time.Time     `json:"processed_at,omitempty"`
}

// Artifact is the persisted outcome of one processing request. Exported
// forms never include the raw texts.
type Artifact struct {
	ID                 string         `json:"artifact_id"`
	SessionID          string         `json:"session_id"`
	UserPseudonym      string         `json:"user_pseudonym"`
	DescriptionText    string         `json:"-"`
	EmbodimentCaption  string         `json:"-"`
	LightRecord        Record         `json:"pald_light"`
	DiffResult         *DiffResult    `json:"pald_diff,omitempty"`
	ProcessingMetadata map[string]any `json:"processing_metadata"`
	CreatedAt          time.Time      `json:"created_at"`
	InputHashes        []string       `json:"input_ids"`
}

// ProcessRequest is the core API request shape.
type ProcessRequest struct {
	UserID            string         `json:"user_id"`
	SessionID         string         `json:"session_id"`
	DescriptionText   string         `json:"description_text"`
	EmbodimentCaption string         `json:"embodiment_caption,omitempty"`
	DeferBiasScan     *bool          `json:"defer_bias_scan,omitempty"`
	ProcessingOptions map[string]any `json:"processing_options,omitempty"`
}

// ProcessingMetadata is the response metadata block.
type ProcessingMetadata struct {
	ArtifactID           string    `json:"artifact_id"`
	ExtractionConfidence float64   `json:"extraction_confidence"`
	CompressedPrompt     string    `json:"compressed_prompt"`
	ProcessingTimestamp  time.Time `json:"processing_timestamp"`
	Error                bool      `json:"error,omitempty"`
}

// ProcessResponse is the core API response shape. A request always yields
// a response; fully degraded responses carry a fallback record and at
// least one validation error.
type ProcessResponse struct {
	PALDLight        Record             `json:"pald_light"`
	PALDDiffSummary  *string            `json:"pald_diff_summary,omitempty"`
	DeferNotice      *string            `json:"defer_notice,omitempty"`
	ValidationErrors []string           `json:"validation_errors"`
	Metadata         ProcessingMetadata `json:"processing_metadata"`
}
