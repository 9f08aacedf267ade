// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package bias

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultProcessInterval = 30 * time.Second
	defaultBatchSize       = 10
	defaultRetention       = 30 * 24 * time.Hour
)

// RunnerConfig configures the background queue runner.
type RunnerConfig struct {
	Manager *Manager
	Logger  *zap.Logger

	// ProcessInterval is how often a batch of pending jobs is drained.
	ProcessInterval time.Duration
	// BatchSize caps the jobs drained per tick.
	BatchSize int
	// Concurrency is how many jobs are processed in parallel per tick.
	Concurrency int
	// Retention is how long finished jobs are kept before the daily
	// cleanup removes them.
	Retention time.Duration
}

// Runner drains the bias queue on a schedule: a short-interval entry
// processes pending jobs, a daily entry evicts finished jobs past their
// retention window.
type Runner struct {
	manager   *Manager
	logger    *zap.Logger
	cron      *cron.Cron
	batchSize int
	workers   int
	retention time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("bias runner requires a manager")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ProcessInterval <= 0 {
		cfg.ProcessInterval = defaultProcessInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > cfg.BatchSize {
		cfg.Concurrency = cfg.BatchSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		manager:   cfg.Manager,
		logger:    cfg.Logger,
		cron:      cron.New(cron.WithSeconds()),
		batchSize: cfg.BatchSize,
		workers:   cfg.Concurrency,
		retention: cfg.Retention,
		ctx:       ctx,
		cancel:    cancel,
	}

	if _, err := r.cron.AddFunc(
		fmt.Sprintf("@every %s", cfg.ProcessInterval), r.drainBatch); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule queue processing: %w", err)
	}
	if _, err := r.cron.AddFunc("@daily", r.cleanup); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule job cleanup: %w", err)
	}
	return r, nil
}

// Start launches the schedule in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("bias queue runner started",
		zap.Int("batch_size", r.batchSize),
		zap.Int("workers", r.workers),
		zap.Duration("retention", r.retention))
}

// Stop halts the schedule and waits for in-flight entries to finish.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("bias queue runner stopped")
}

// drainBatch processes up to batchSize jobs, fanned out over the
// configured workers. Claims are atomic, so workers never share a job.
func (r *Runner) drainBatch() {
	var (
		remaining atomic.Int64
		processed atomic.Int64
		wg        sync.WaitGroup
	)
	remaining.Store(int64(r.batchSize))

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for remaining.Add(-1) >= 0 {
				if r.manager.ProcessBatch(r.ctx, 1) == 0 {
					return
				}
				processed.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := processed.Load(); n > 0 {
		r.logger.Debug("bias queue drained",
			zap.Int64("processed", n),
			zap.Int("pending", r.manager.PendingCount()))
	}
}

func (r *Runner) cleanup() {
	r.manager.Cleanup(r.retention)
}
