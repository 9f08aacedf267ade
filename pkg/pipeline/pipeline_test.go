// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/artifact"
	"github.com/gitte-labs/pald/pkg/bias"
	"github.com/gitte-labs/pald/pkg/diff"
	"github.com/gitte-labs/pald/pkg/extract"
	"github.com/gitte-labs/pald/pkg/pald"
)

type testDeps struct {
	pipeline *Pipeline
	manager  *bias.Manager
	store    *artifact.Store
}

func newTestPipeline(t *testing.T, opts Options) *testDeps {
	t.Helper()
	store, err := artifact.NewStore(filepath.Join(t.TempDir(), "artifacts.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := bias.NewManager(bias.ManagerConfig{})
	p := New(
		extract.New(nil, nil),
		diff.New(nil),
		manager,
		store,
		artifact.NewPseudonymizer("test-key", true),
		nil,
		opts,
	)
	return &testDeps{pipeline: p, manager: manager, store: store}
}

// jobIDFromNotice recovers the queued job id from a defer notice.
func jobIDFromNotice(t *testing.T, notice *string) string {
	t.Helper()
	require.NotNil(t, notice)
	id := strings.TrimPrefix(*notice, "bias analysis deferred; job ")
	return strings.TrimSuffix(id, " is pending")
}

func TestProcess_FullRequest(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		UserID:            "user-1",
		SessionID:         "sess-1",
		DescriptionText:   "A friendly female teacher wearing a blue dress, she looks realistic and competent.",
		EmbodimentCaption: "A woman in a blue dress standing in a classroom.",
	})

	typ, _ := resp.PALDLight.Value("global_design_level.type")
	assert.Equal(t, "human", typ)
	assert.NotEmpty(t, resp.Metadata.ArtifactID)
	assert.Greater(t, resp.Metadata.ExtractionConfidence, 0.0)
	assert.Contains(t, resp.Metadata.CompressedPrompt, "teacher")
	assert.False(t, resp.Metadata.Error)
	assert.NotNil(t, resp.ValidationErrors)

	require.NotNil(t, resp.PALDDiffSummary)
	assert.Contains(t, *resp.PALDDiffSummary, "consistency")

	require.NotNil(t, resp.DeferNotice)
	assert.Contains(t, *resp.DeferNotice, "deferred")
	assert.Equal(t, 1, d.manager.PendingCount())

	// The artifact landed in the store, pseudonymised, with the raw
	// texts persisted alongside.
	artifacts, err := d.store.BySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, resp.Metadata.ArtifactID, artifacts[0].ID)
	assert.Len(t, artifacts[0].UserPseudonym, 32)
	assert.NotEqual(t, "user-1", artifacts[0].UserPseudonym)
	assert.Len(t, artifacts[0].InputHashes, 2)
}

func TestProcess_NoCaptionNoDiff(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:       "sess-1",
		DescriptionText: "A friendly tutor.",
	})

	assert.Nil(t, resp.PALDDiffSummary)
	require.NotNil(t, resp.DeferNotice)
}

func TestProcess_SynchronousBias(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})
	noDefer := false

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:       "sess-1",
		DescriptionText: "An elderly male professor.",
		DeferBiasScan:   &noDefer,
	})

	assert.Nil(t, resp.DeferNotice)
	// The inline job was claimed and finished, not left pending.
	assert.Equal(t, 0, d.manager.PendingCount())
}

func TestProcess_EmptyDescription(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:       "sess-1",
		DescriptionText: "",
	})

	assert.Equal(t, 0.0, resp.Metadata.ExtractionConfidence)
	assert.Equal(t, "person", resp.Metadata.CompressedPrompt)
	assert.NotEmpty(t, resp.ValidationErrors)

	typ, _ := resp.PALDLight.Value("global_design_level.type")
	assert.Equal(t, "human", typ)
}

func TestProcess_OptionalDependenciesNil(t *testing.T) {
	p := New(extract.New(nil, nil), diff.New(nil), nil, nil, nil, nil, Options{})

	resp := p.Process(context.Background(), pald.ProcessRequest{
		SessionID:         "sess-1",
		DescriptionText:   "A friendly teacher.",
		EmbodimentCaption: "A teacher.",
	})

	assert.NotNil(t, resp.PALDDiffSummary)
	assert.Nil(t, resp.DeferNotice)
	assert.NotEmpty(t, resp.Metadata.ArtifactID)
}

func TestProcess_PriorityOption(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})

	low := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:         "sess-low",
		DescriptionText:   "A tutor.",
		ProcessingOptions: map[string]any{"priority": 2},
	})
	high := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:         "sess-high",
		DescriptionText:   "A tutor.",
		ProcessingOptions: map[string]any{"priority": float64(9)},
	})
	lowID := jobIDFromNotice(t, low.DeferNotice)
	highID := jobIDFromNotice(t, high.DeferNotice)

	require.Equal(t, 1, d.manager.ProcessBatch(context.Background(), 1))
	hs, err := d.manager.Status(highID)
	require.NoError(t, err)
	assert.Equal(t, pald.JobCompleted, hs)
	ls, err := d.manager.Status(lowID)
	require.NoError(t, err)
	assert.Equal(t, pald.JobPending, ls)
}

func TestProcess_DefaultPriority(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:       "sess-1",
		DescriptionText: "A tutor.",
	})

	job, err := d.manager.Job(jobIDFromNotice(t, resp.DeferNotice))
	require.NoError(t, err)
	assert.Equal(t, 1, job.Priority)
}

func TestProcess_CaptionReachesLightRecord(t *testing.T) {
	d := newTestPipeline(t, Options{DeferBiasByDefault: true})

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:         "sess-1",
		DescriptionText:   "A friendly teacher.",
		EmbodimentCaption: "She is wearing a blue dress.",
	})

	// Attributes present only in the caption still land in the record.
	clothing, ok := resp.PALDLight.Value("detailed_level.clothing")
	require.True(t, ok)
	assert.Contains(t, clothing.(string), "blue dress")
}

func TestProcess_EnabledAnalysesRestrictJobs(t *testing.T) {
	enabled := []pald.AnalysisType{pald.AnalysisAgeShift, pald.AnalysisGenderConformity}
	d := newTestPipeline(t, Options{DeferBiasByDefault: true, EnabledAnalyses: enabled})

	resp := d.pipeline.Process(context.Background(), pald.ProcessRequest{
		SessionID:       "sess-1",
		DescriptionText: "An elderly male professor.",
	})

	job, err := d.manager.Job(jobIDFromNotice(t, resp.DeferNotice))
	require.NoError(t, err)
	assert.Equal(t, enabled, job.AnalysisTypes)
}

func TestProcess_PseudonymizationDisabled(t *testing.T) {
	store, err := artifact.NewStore(filepath.Join(t.TempDir(), "artifacts.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := New(extract.New(nil, nil), diff.New(nil), nil, store,
		artifact.NewPseudonymizer("", false), nil, Options{})

	p.Process(context.Background(), pald.ProcessRequest{
		UserID:          "user-1",
		SessionID:       "sess-1",
		DescriptionText: "A friendly teacher.",
	})

	artifacts, err := store.BySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "user-1", artifacts[0].UserPseudonym)
}
