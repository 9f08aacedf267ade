// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package artifact

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/pald"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "artifacts.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testArtifact(sessionID string, createdAt time.Time) *pald.Artifact {
	rec := pald.Record{}
	rec.Set(pald.SectionGlobal, "type", "human")
	rec.Set(pald.SectionDetailed, "gender", "female")

	return &pald.Artifact{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		UserPseudonym:     "b1946ac92492d2347c6235b4d2611184",
		DescriptionText:   "A friendly female teacher.",
		EmbodimentCaption: "A woman in a classroom.",
		LightRecord:       rec,
		DiffResult: &pald.DiffResult{
			Matches:         map[string]pald.DiffEntry{"global_design_level.type": {}},
			Hallucinations:  map[string]pald.DiffEntry{},
			Missing:         map[string]pald.DiffEntry{},
			Classifications: map[string]pald.Classification{"global_design_level.type": pald.ClassMatch},
			Similarity:      1.0,
			Summary:         "High consistency",
		},
		ProcessingMetadata: map[string]any{"extraction_confidence": 0.7},
		CreatedAt:          createdAt,
		InputHashes:        []string{"a1b2c3d4e5f6"},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testArtifact("sess-1", time.Now().UTC())
	require.NoError(t, s.Save(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.SessionID, got.SessionID)
	assert.Equal(t, a.UserPseudonym, got.UserPseudonym)
	assert.Equal(t, a.InputHashes, got.InputHashes)

	typ, _ := got.LightRecord.Value("global_design_level.type")
	assert.Equal(t, "human", typ)
	require.NotNil(t, got.DiffResult)
	assert.Equal(t, 1.0, got.DiffResult.Similarity)
	// Raw texts survive the roundtrip; only exports strip them.
	assert.Equal(t, a.DescriptionText, got.DescriptionText)
	assert.Equal(t, a.EmbodimentCaption, got.EmbodimentCaption)
}

func TestStore_GetUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "no-such-artifact")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestStore_BySession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	first := testArtifact("sess-1", base.Add(-time.Minute))
	second := testArtifact("sess-1", base)
	other := testArtifact("sess-2", base)
	for _, a := range []*pald.Artifact{second, first, other} {
		require.NoError(t, s.Save(ctx, a))
	}

	got, err := s.BySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)

	all, err := s.BySession(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_NilDiffResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testArtifact("sess-1", time.Now().UTC())
	a.DiffResult = nil
	require.NoError(t, s.Save(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DiffResult)
}

func TestStore_DeleteOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := testArtifact("sess-1", now.Add(-48*time.Hour))
	fresh := testArtifact("sess-1", now)
	require.NoError(t, s.Save(ctx, old))
	require.NoError(t, s.Save(ctx, fresh))

	deleted, err := s.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = s.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = s.Get(ctx, fresh.ID)
	assert.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_SaveIsIdempotentPerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testArtifact("sess-1", time.Now().UTC())
	require.NoError(t, s.Save(ctx, a))
	a.SessionID = "sess-updated"
	require.NoError(t, s.Save(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-updated", got.SessionID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
