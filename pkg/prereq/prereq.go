// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package prereq validates runtime prerequisites (storage, providers,
// consent, system resources) before operations run. Checks execute in a
// bounded worker pool with per-check timeouts, results are cached with a
// strict TTL, and operation policies decide which checks gate which
// operation.
package prereq

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of one check or a whole suite.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
	StatusUnknown Status = "unknown"
)

// Kind classifies how strongly a check gates operations.
type Kind string

const (
	KindRequired    Kind = "required"
	KindRecommended Kind = "recommended"
	KindOptional    Kind = "optional"
)

// CheckResult is the outcome of a single prerequisite check.
type CheckResult struct {
	Name            string         `json:"name"`
	Status          Status         `json:"status"`
	Message         string         `json:"message"`
	Kind            Kind           `json:"kind"`
	Details         map[string]any `json:"details,omitempty"`
	ResolutionSteps []string       `json:"resolution_steps,omitempty"`
	Duration        time.Duration  `json:"duration"`
	Cached          bool           `json:"cached"`
}

// Checker is one prerequisite probe. Required checkers gate operations;
// recommended and optional ones only inform.
type Checker interface {
	Name() string
	Kind() Kind
	Check(ctx context.Context) CheckResult
}

// SuiteResult aggregates one validation run.
type SuiteResult struct {
	Overall   Status        `json:"overall"`
	Results   []CheckResult `json:"results"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// FailedRequired lists the names of required checks that failed.
func (s *SuiteResult) FailedRequired() []string {
	var names []string
	for _, r := range s.Results {
		if r.Kind == KindRequired && r.Status == StatusFailed {
			names = append(names, r.Name)
		}
	}
	return names
}

// FailedRecommended lists recommended checks that did not pass.
func (s *SuiteResult) FailedRecommended() []string {
	var names []string
	for _, r := range s.Results {
		if r.Kind == KindRecommended && r.Status != StatusPassed {
			names = append(names, r.Name)
		}
	}
	return names
}

// AllCached reports whether every result came from the cache.
func (s *SuiteResult) AllCached() bool {
	for _, r := range s.Results {
		if !r.Cached {
			return false
		}
	}
	return len(s.Results) > 0
}

const (
	defaultCheckTimeout = 5 * time.Second
	defaultCacheTTL     = 5 * time.Minute
	maxPoolSize         = 5
)

// timeoutResolutionSteps is the standard remediation attached to checks
// that overran their deadline.
var timeoutResolutionSteps = []string{
	"verify the checked service is responding",
	"increase the check timeout if the service is merely slow",
}

// Config tunes a Validator. Zero values take defaults.
type Config struct {
	CheckTimeout time.Duration
	CacheTTL     time.Duration
	// Sequential disables the worker pool by default; checks then run
	// one by one in registration order.
	Sequential bool
	Logger     *zap.Logger
}

// Validator owns a set of checkers and their cached results.
type Validator struct {
	checkers     []Checker
	byName       map[string]Checker
	checkTimeout time.Duration
	sequential   bool
	logger       *zap.Logger

	cacheMu  sync.Mutex
	cacheTTL time.Duration
	cache    map[string]cacheEntry
}

type cacheEntry struct {
	result     CheckResult
	insertedAt time.Time
	expiresAt  time.Time
}

func NewValidator(cfg Config, checkers ...Checker) *Validator {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = defaultCheckTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	v := &Validator{
		checkTimeout: cfg.CheckTimeout,
		sequential:   cfg.Sequential,
		logger:       cfg.Logger,
		cacheTTL:     cfg.CacheTTL,
		cache:        make(map[string]cacheEntry),
		byName:       make(map[string]Checker),
	}
	for _, c := range checkers {
		v.Register(c)
	}
	return v
}

// Register adds a checker; a checker with the same name replaces the
// earlier registration.
func (v *Validator) Register(c Checker) {
	if _, exists := v.byName[c.Name()]; !exists {
		v.checkers = append(v.checkers, c)
	} else {
		for i, existing := range v.checkers {
			if existing.Name() == c.Name() {
				v.checkers[i] = c
				break
			}
		}
	}
	v.byName[c.Name()] = c
}

// RunAll executes every registered checker.
func (v *Validator) RunAll(ctx context.Context, useCache bool) *SuiteResult {
	return v.run(ctx, v.checkers, useCache, !v.sequential, v.checkTimeout)
}

// RunSpecific executes the named checkers only.
func (v *Validator) RunSpecific(ctx context.Context, names []string, useCache bool) (*SuiteResult, error) {
	selected := make([]Checker, 0, len(names))
	for _, name := range names {
		c, ok := v.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown prerequisite check %q", name)
		}
		selected = append(selected, c)
	}
	return v.run(ctx, selected, useCache, !v.sequential, v.checkTimeout), nil
}

func (v *Validator) run(ctx context.Context, checkers []Checker, useCache, parallel bool, timeout time.Duration) *SuiteResult {
	started := time.Now().UTC()

	// Serve what the cache still holds; run the rest.
	results := make([]CheckResult, len(checkers))
	var pending []int
	for i, c := range checkers {
		if cached, ok := v.cached(c.Name()); useCache && ok {
			results[i] = cached
		} else {
			pending = append(pending, i)
		}
	}

	if parallel {
		v.executePool(ctx, checkers, pending, results, timeout)
	} else {
		for _, i := range pending {
			results[i] = v.execute(ctx, checkers[i], timeout)
		}
	}

	for _, i := range pending {
		v.storeCache(results[i])
	}

	suite := &SuiteResult{
		Results:   results,
		Timestamp: started,
		Duration:  time.Since(started),
	}
	suite.Overall = aggregate(results)
	v.logger.Debug("prerequisite validation finished",
		zap.String("overall", string(suite.Overall)),
		zap.Int("checks", len(results)),
		zap.Int("cached", len(results)-len(pending)))
	return suite
}

// executePool fans the pending checks out over at most five workers. An
// outer failure of the pool falls back to sequential execution.
func (v *Validator) executePool(ctx context.Context, checkers []Checker, pending []int, results []CheckResult, timeout time.Duration) {
	if len(pending) == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("parallel check runner failed, running sequentially",
				zap.Any("panic", r))
			for _, i := range pending {
				if results[i].Name == "" {
					results[i] = v.execute(ctx, checkers[i], timeout)
				}
			}
		}
	}()

	workers := len(pending)
	if workers > maxPoolSize {
		workers = maxPoolSize
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = v.execute(ctx, checkers[i], timeout)
			}
		}()
	}
	for _, i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// execute runs one check with a timeout and panic capture. A check that
// overruns its deadline or panics reports as failed, never as a hang.
func (v *Validator) execute(ctx context.Context, c Checker, timeout time.Duration) CheckResult {
	started := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- CheckResult{
					Name:    c.Name(),
					Status:  StatusFailed,
					Message: fmt.Sprintf("check panicked: %v", r),
				}
			}
		}()
		done <- c.Check(checkCtx)
	}()

	var res CheckResult
	select {
	case res = <-done:
	case <-checkCtx.Done():
		res = CheckResult{
			Name:            c.Name(),
			Status:          StatusFailed,
			Message:         fmt.Sprintf("Check timed out after %gs", timeout.Seconds()),
			ResolutionSteps: timeoutResolutionSteps,
		}
	}
	res.Name = c.Name()
	res.Kind = c.Kind()
	res.Duration = time.Since(started)
	if res.Status == StatusFailed {
		v.logger.Warn("prerequisite check failed",
			zap.String("check", res.Name), zap.String("message", res.Message))
	}
	return res
}

// aggregate derives the suite status: any required failure fails the
// suite; otherwise a fully passing required set with a deviating
// recommended set downgrades to warning.
func aggregate(results []CheckResult) Status {
	requiredPassed, recommendedPassed := true, true
	for _, r := range results {
		switch r.Kind {
		case KindRequired:
			if r.Status == StatusFailed {
				return StatusFailed
			}
			if r.Status != StatusPassed {
				requiredPassed = false
			}
		case KindRecommended:
			if r.Status != StatusPassed {
				recommendedPassed = false
			}
		}
	}
	if requiredPassed && !recommendedPassed {
		return StatusWarning
	}
	return StatusPassed
}

func (v *Validator) cached(name string) (CheckResult, bool) {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	entry, ok := v.cache[name]
	if !ok || !time.Now().Before(entry.expiresAt) {
		// Strict expiry: a stale entry is never served.
		delete(v.cache, name)
		return CheckResult{}, false
	}
	res := entry.result
	res.Cached = true
	return res, true
}

func (v *Validator) storeCache(res CheckResult) {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	now := time.Now()
	v.cache[res.Name] = cacheEntry{
		result:     res,
		insertedAt: now,
		expiresAt:  now.Add(v.cacheTTL),
	}
}

// ClearCache drops cached results; without names it drops everything.
func (v *Validator) ClearCache(names ...string) {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	if len(names) == 0 {
		v.cache = make(map[string]cacheEntry)
		return
	}
	for _, name := range names {
		delete(v.cache, name)
	}
}

// CacheEntryStatus describes one cached result.
type CacheEntryStatus struct {
	Age       time.Duration `json:"age"`
	Valid     bool          `json:"valid"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// CacheStatus reports the cache TTL and the state of every entry.
type CacheStatus struct {
	TTL     time.Duration               `json:"ttl"`
	Entries map[string]CacheEntryStatus `json:"entries"`
}

// GetCacheStatus snapshots the cache.
func (v *Validator) GetCacheStatus() CacheStatus {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	now := time.Now()
	status := CacheStatus{
		TTL:     v.cacheTTL,
		Entries: make(map[string]CacheEntryStatus, len(v.cache)),
	}
	for name, entry := range v.cache {
		remaining := entry.expiresAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		status.Entries[name] = CacheEntryStatus{
			Age:       now.Sub(entry.insertedAt),
			Valid:     remaining > 0,
			ExpiresIn: remaining,
		}
	}
	return status
}

// CheckerNames lists the registered checkers, sorted.
func (v *Validator) CheckerNames() []string {
	names := make([]string, 0, len(v.byName))
	for name := range v.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
