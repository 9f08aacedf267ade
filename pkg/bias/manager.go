// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package bias

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/pald"
)

var (
	// ErrJobNotFound is returned when a job id is unknown.
	ErrJobNotFound = errors.New("bias job not found")
	// ErrJobNotCompleted is returned when results are requested before the
	// job finished.
	ErrJobNotCompleted = errors.New("bias job not completed")
)

const defaultJobTimeout = 30 * time.Second

// ManagerConfig configures a job queue manager. Zero values take
// defaults.
type ManagerConfig struct {
	Analyzer   *Analyzer
	Logger     *zap.Logger
	JobTimeout time.Duration
}

// Manager owns the deferred bias-analysis queue. Jobs move through
// pending -> processing -> completed/failed; pickup order is priority
// descending, then creation time ascending. All state transitions happen
// under the manager lock, so concurrent workers never claim the same job.
type Manager struct {
	analyzer   *Analyzer
	logger     *zap.Logger
	jobTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]*pald.BiasJob
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Analyzer == nil {
		cfg.Analyzer = NewAnalyzer(nil, cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &Manager{
		analyzer:   cfg.Analyzer,
		logger:     cfg.Logger,
		jobTimeout: cfg.JobTimeout,
		jobs:       make(map[string]*pald.BiasJob),
	}
}

// Create enqueues a deferred analysis job and returns its id. An empty
// analysis list requests the full suite. The queue is unbounded;
// producers are never throttled.
func (m *Manager) Create(sessionID string, desc, emb pald.Record, types []pald.AnalysisType, priority int) (string, error) {
	if len(types) == 0 {
		types = append([]pald.AnalysisType(nil), pald.AllAnalysisTypes...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job := &pald.BiasJob{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		CreatedAt:         time.Now().UTC(),
		DescriptionRecord: desc.Clone(),
		EmbodimentRecord:  emb.Clone(),
		AnalysisTypes:     types,
		Priority:          priority,
		Status:            pald.JobPending,
	}
	m.jobs[job.ID] = job
	m.logger.Debug("bias job queued",
		zap.String("job_id", job.ID),
		zap.String("session_id", sessionID),
		zap.Int("priority", priority))
	return job.ID, nil
}

// Job returns a copy of the job for inspection.
func (m *Manager) Job(id string) (*pald.BiasJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	cp.Results = append([]pald.BiasResult(nil), job.Results...)
	return &cp, nil
}

// Status returns the current lifecycle state of a job.
func (m *Manager) Status(id string) (pald.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return "", ErrJobNotFound
	}
	return job.Status, nil
}

// Results returns the analysis results of a completed job.
func (m *Manager) Results(id string) ([]pald.BiasResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != pald.JobCompleted {
		return nil, fmt.Errorf("%w: job %s is %s", ErrJobNotCompleted, id, job.Status)
	}
	return append([]pald.BiasResult(nil), job.Results...), nil
}

// PendingCount reports how many jobs await processing.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLocked()
}

func (m *Manager) pendingLocked() int {
	n := 0
	for _, job := range m.jobs {
		if job.Status == pald.JobPending {
			n++
		}
	}
	return n
}

// ProcessOne runs the identified pending job. It returns ErrJobNotFound
// for unknown ids and an error when the job is not pending.
func (m *Manager) ProcessOne(ctx context.Context, id string) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status != pald.JobPending {
		m.mu.Unlock()
		return fmt.Errorf("job %s is %s, not pending", id, job.Status)
	}
	job.Status = pald.JobProcessing
	m.mu.Unlock()

	m.processJob(ctx, job)
	return nil
}

// processJob runs a claimed job. Analyses stream in one at a time; when
// the job timeout expires the outstanding analyses are recorded as
// failed results and the job still completes with what it has, so one
// slow dimension never discards the rest.
func (m *Manager) processJob(ctx context.Context, job *pald.BiasJob) {
	ordered := orderTypes(job.AnalysisTypes)
	// Buffered so the worker goroutine always runs to completion even
	// after the collector stops receiving.
	stream := make(chan pald.BiasResult, len(ordered))
	go func() {
		defer close(stream)
		var prior []pald.BiasResult
		for _, t := range ordered {
			res := m.analyzer.runOne(t, job.DescriptionRecord, job.EmbodimentRecord, prior)
			prior = append(prior, res)
			stream <- res
		}
	}()

	timer := time.NewTimer(m.jobTimeout)
	defer timer.Stop()

	var results []pald.BiasResult
	var failure string
collect:
	for len(results) < len(ordered) {
		select {
		case res, ok := <-stream:
			if !ok {
				break collect
			}
			results = append(results, res)
		case <-timer.C:
			for _, t := range ordered[len(results):] {
				results = append(results, failedResult(t,
					fmt.Sprintf("analysis timed out after %s", m.jobTimeout)))
			}
			break collect
		case <-ctx.Done():
			failure = fmt.Sprintf("analysis aborted: %v", ctx.Err())
			break collect
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	job.ProcessedAt = &now
	if failure != "" {
		job.Status = pald.JobFailed
		job.Error = failure
		m.logger.Warn("bias job failed",
			zap.String("job_id", job.ID), zap.String("error", failure))
	} else {
		job.Status = pald.JobCompleted
		job.Results = results
		m.logger.Info("bias job completed",
			zap.String("job_id", job.ID),
			zap.Int("analyses", len(results)))
	}
}

// ProcessBatch claims and runs up to max pending jobs in priority order,
// stopping early when the queue drains or the context ends.
func (m *Manager) ProcessBatch(ctx context.Context, max int) int {
	processed := 0
	for processed < max {
		if ctx.Err() != nil {
			return processed
		}
		job := m.claim()
		if job == nil {
			return processed
		}
		m.processJob(ctx, job)
		processed++
	}
	return processed
}

// claim atomically selects the next pending job by (priority desc,
// created_at asc) and marks it processing.
func (m *Manager) claim() *pald.BiasJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *pald.BiasJob
	for _, job := range m.jobs {
		if job.Status != pald.JobPending {
			continue
		}
		if best == nil ||
			job.Priority > best.Priority ||
			(job.Priority == best.Priority && job.CreatedAt.Before(best.CreatedAt)) {
			best = job
		}
	}
	if best != nil {
		best.Status = pald.JobProcessing
	}
	return best
}

// Cleanup removes finished jobs whose processing time is older than the
// retention window and returns how many were dropped.
func (m *Manager) Cleanup(retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		if job.Status != pald.JobCompleted && job.Status != pald.JobFailed {
			continue
		}
		if job.ProcessedAt != nil && job.ProcessedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("bias job cleanup", zap.Int("removed", removed))
	}
	return removed
}
