// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/pald"
)

func writeSchemaFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pald_schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_LoadFromFile(t *testing.T) {
	path := writeSchemaFile(t, t.TempDir(), defaultSchemaJSON)
	reg := NewRegistry(Config{Path: path})

	s := reg.Load()
	require.NotNil(t, s)
	assert.NoError(t, reg.LastError())
	assert.Equal(t, s.Version, reg.CurrentVersion())
}

func TestRegistry_MissingFileFallsBackToDefault(t *testing.T) {
	reg := NewRegistry(Config{Path: filepath.Join(t.TempDir(), "absent.json")})

	s := reg.Load()
	require.NotNil(t, s)
	assert.Equal(t, DefaultSchema().Version, s.Version)
	assert.Error(t, reg.LastError())
}

func TestRegistry_MalformedFileFallsBackToDefault(t *testing.T) {
	path := writeSchemaFile(t, t.TempDir(), `{"global_design_level": "not an object"}`)
	reg := NewRegistry(Config{Path: path})

	s := reg.Load()
	assert.Equal(t, DefaultSchema().Version, s.Version)
	assert.Error(t, reg.LastError())
}

func TestRegistry_RecoversWhenFileRestored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pald_schema.json")
	reg := NewRegistry(Config{Path: path})

	s := reg.Load()
	assert.Equal(t, DefaultSchema().Version, s.Version)
	assert.Error(t, reg.LastError())

	custom := `{
		"global_design_level": {"type": {"type": "string"}},
		"middle_design_level": {"role": {"type": "string"}},
		"detailed_level": {"gender": {"type": "string"}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	s = reg.Load()
	assert.NoError(t, reg.LastError())
	assert.NotEqual(t, DefaultSchema().Version, s.Version)
	assert.Equal(t, 3, s.FieldCount())
}

func TestRegistry_DetectChangesOnModification(t *testing.T) {
	dir := t.TempDir()
	path := writeSchemaFile(t, dir, defaultSchemaJSON)
	reg := NewRegistry(Config{Path: path, CacheTTL: time.Hour})

	first := reg.Load()
	assert.False(t, reg.DetectChanges())

	// Rewrite with a different document and a newer mtime.
	custom := `{
		"global_design_level": {"type": {"type": "string"}},
		"middle_design_level": {},
		"detailed_level": {}
	}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.True(t, reg.DetectChanges())
	second := reg.Load()
	assert.NotEqual(t, first.Version, second.Version)
}

func TestRegistry_SetTTLForcesRefresh(t *testing.T) {
	path := writeSchemaFile(t, t.TempDir(), defaultSchemaJSON)
	reg := NewRegistry(Config{Path: path, CacheTTL: time.Hour})

	reg.Load()
	reg.SetTTL(time.Nanosecond)
	time.Sleep(time.Millisecond)
	assert.True(t, reg.DetectChanges())
}

func TestRegistry_FieldCandidates(t *testing.T) {
	path := writeSchemaFile(t, t.TempDir(), defaultSchemaJSON)
	reg := NewRegistry(Config{Path: path, EnableEvolution: true})

	rec := pald.Record{
		"detailed_level": {"tattoos": "sleeve"},
	}
	reg.ValidateRecord(rec)
	reg.ValidateRecord(rec)

	cands := reg.FieldCandidates()
	require.Len(t, cands, 1)
	assert.Equal(t, "detailed_level.tattoos", cands[0].Path)
	assert.Equal(t, 2, cands[0].Count)
	assert.Equal(t, "string", cands[0].ValueType)
}

func TestRegistry_EvolutionDisabledQueuesNothing(t *testing.T) {
	path := writeSchemaFile(t, t.TempDir(), defaultSchemaJSON)
	reg := NewRegistry(Config{Path: path})

	reg.ValidateRecord(pald.Record{"detailed_level": {"tattoos": "sleeve"}})
	assert.Empty(t, reg.FieldCandidates())
}
