// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package prereq

import (
	"context"
	"sort"
	"time"
)

// Well-known checker names used by the operation policies.
const (
	CheckDatabase           = "database"
	CheckConsent            = "consent"
	CheckEmbodimentProvider = "embodiment_provider"
	CheckSchemaSource       = "schema_source"
	CheckSystemResources    = "system_resources"
)

// OperationPolicy names the checks an operation depends on, in three
// disjoint sets, plus the per-check timeout and whether the operation
// tolerates partial failure.
type OperationPolicy struct {
	Required            []string
	Recommended         []string
	Optional            []string
	TimeoutSeconds      int
	AllowPartialFailure bool
}

func (p OperationPolicy) timeout(fallback time.Duration) time.Duration {
	if p.TimeoutSeconds > 0 {
		return time.Duration(p.TimeoutSeconds) * time.Second
	}
	return fallback
}

// operationPolicies maps operation names to their prerequisites.
var operationPolicies = map[string]OperationPolicy{
	"process": {
		Required:       []string{CheckDatabase, CheckConsent},
		Recommended:    []string{CheckSchemaSource, CheckSystemResources},
		TimeoutSeconds: 5,
	},
	"embodiment_generation": {
		Required:       []string{CheckDatabase, CheckConsent, CheckEmbodimentProvider},
		Recommended:    []string{CheckSystemResources},
		TimeoutSeconds: 10,
	},
	"bias_worker": {
		Required:            []string{CheckDatabase},
		Recommended:         []string{CheckSystemResources},
		TimeoutSeconds:      5,
		AllowPartialFailure: true,
	},
	"export": {
		Required:       []string{CheckDatabase},
		Optional:       []string{CheckSystemResources},
		TimeoutSeconds: 5,
	},
}

// Operations lists the known operation names, sorted.
func Operations() []string {
	ops := make([]string, 0, len(operationPolicies))
	for op := range operationPolicies {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// ValidateForOperation runs exactly the checks the operation's policy
// names, under the policy's timeout. Policy entries without a registered
// checker are skipped, so a deployment that does not wire an optional
// subsystem is not penalised for it. An operation without a policy gets
// the full suite.
func (v *Validator) ValidateForOperation(ctx context.Context, operation string, useCache, parallel bool) (*SuiteResult, error) {
	policy, ok := operationPolicies[operation]
	if !ok {
		return v.run(ctx, v.checkers, useCache, parallel, v.checkTimeout), nil
	}

	var selected []Checker
	all := append(append(append([]string{}, policy.Required...), policy.Recommended...), policy.Optional...)
	for _, name := range all {
		if c, registered := v.byName[name]; registered {
			selected = append(selected, c)
		}
	}
	return v.run(ctx, selected, useCache, parallel, policy.timeout(v.checkTimeout)), nil
}

// Readiness summarises whether an operation may proceed.
type Readiness struct {
	Ready                  bool     `json:"ready"`
	CanProceedWithWarnings bool     `json:"can_proceed_with_warnings"`
	RequiredFailures       []string `json:"required_failures"`
	RecommendedFailures    []string `json:"recommended_failures"`
	Cached                 bool     `json:"cached"`
}

// CheckOperationReadiness validates the operation's prerequisites and
// reports which required and recommended checks stand in the way. Ready
// means no required failures; recommended failures never block.
func (v *Validator) CheckOperationReadiness(ctx context.Context, operation string) (*Readiness, *SuiteResult, error) {
	suite, err := v.ValidateForOperation(ctx, operation, true, true)
	if err != nil {
		return nil, nil, err
	}
	ready := len(suite.FailedRequired()) == 0
	return &Readiness{
		Ready:                  ready,
		CanProceedWithWarnings: ready,
		RequiredFailures:       suite.FailedRequired(),
		RecommendedFailures:    suite.FailedRecommended(),
		Cached:                 suite.AllCached(),
	}, suite, nil
}

// Recommendation is a remediation suggestion derived from a suite run.
type Recommendation struct {
	CheckerName         string   `json:"checker_name"`
	Issue               string   `json:"issue"`
	Priority            string   `json:"priority"`
	ResolutionSteps     []string `json:"resolution_steps"`
	EstimatedTime       string   `json:"estimated_time"`
	AutomationAvailable bool     `json:"automation_available"`
}

// remediation maps checker names to their fix steps, a rough effort
// estimate shown to operators, and whether the fix can be automated.
var remediation = map[string]struct {
	steps     []string
	effort    string
	automated bool
}{
	CheckDatabase: {
		steps:  []string{"verify the database path and file permissions", "restart the service"},
		effort: "5 minutes",
	},
	CheckConsent: {
		steps:  []string{"obtain or refresh participant consent before processing"},
		effort: "varies",
	},
	CheckEmbodimentProvider: {
		steps:  []string{"check provider availability and credentials"},
		effort: "10 minutes",
	},
	CheckSchemaSource: {
		steps:     []string{"restore the schema file; the built-in default is active meanwhile"},
		effort:    "5 minutes",
		automated: true,
	},
	CheckSystemResources: {
		steps:  []string{"free memory or disk space", "reduce concurrent workers"},
		effort: "15 minutes",
	},
}

// Recommendations synthesises remediation advice from a suite result.
// Priority follows the check's kind: required failures are critical,
// required warnings high, recommended issues medium, optional issues
// low. Output is ordered by priority, then input order.
func Recommendations(suite *SuiteResult) []Recommendation {
	priorityRank := map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

	var recs []Recommendation
	for _, r := range suite.Results {
		if r.Status == StatusPassed {
			continue
		}
		var priority string
		switch {
		case r.Kind == KindRequired && r.Status == StatusFailed:
			priority = "critical"
		case r.Kind == KindRequired:
			priority = "high"
		case r.Kind == KindRecommended:
			priority = "medium"
		default:
			priority = "low"
		}

		steps := r.ResolutionSteps
		effort := "Unknown"
		automated := false
		if fix, ok := remediation[r.Name]; ok {
			if len(steps) == 0 {
				steps = fix.steps
			}
			effort = fix.effort
			automated = fix.automated
		}
		if len(steps) == 0 {
			steps = []string{"inspect the check output and resolve the reported condition"}
		}
		recs = append(recs, Recommendation{
			CheckerName:         r.Name,
			Issue:               r.Message,
			Priority:            priority,
			ResolutionSteps:     steps,
			EstimatedTime:       effort,
			AutomationAvailable: automated,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	return recs
}
