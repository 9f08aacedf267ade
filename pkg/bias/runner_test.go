// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package bias

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/pald"
)

func TestNewRunner_RequiresManager(t *testing.T) {
	_, err := NewRunner(RunnerConfig{})
	assert.Error(t, err)
}

func TestNewRunner_ConcurrencyClamped(t *testing.T) {
	r, err := NewRunner(RunnerConfig{
		Manager:     NewManager(ManagerConfig{}),
		BatchSize:   3,
		Concurrency: 10,
	})
	require.NoError(t, err)
	defer r.Stop()
	// Workers never exceed the batch size; zero means one worker.
	assert.Equal(t, 3, r.workers)

	single, err := NewRunner(RunnerConfig{Manager: NewManager(ManagerConfig{})})
	require.NoError(t, err)
	defer single.Stop()
	assert.Equal(t, 1, single.workers)
}

func TestRunner_DrainBatchParallelWorkers(t *testing.T) {
	m := NewManager(ManagerConfig{})
	var ids []string
	for i := 0; i < 6; i++ {
		id, err := m.Create(fmt.Sprintf("sess-%d", i), pald.Record{}, pald.Record{}, nil, 1)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	r, err := NewRunner(RunnerConfig{Manager: m, BatchSize: 4, Concurrency: 4})
	require.NoError(t, err)
	defer r.Stop()

	r.drainBatch()
	completed := 0
	for _, id := range ids {
		status, err := m.Status(id)
		require.NoError(t, err)
		if status == pald.JobCompleted {
			completed++
		}
	}
	assert.Equal(t, 4, completed)
	assert.Equal(t, 2, m.PendingCount())
}

func TestRunner_StartStop(t *testing.T) {
	r, err := NewRunner(RunnerConfig{Manager: NewManager(ManagerConfig{})})
	require.NoError(t, err)

	r.Start()
	r.Stop()
}
