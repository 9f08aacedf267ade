// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitte-labs/pald/pkg/pald"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.MandatoryPALDExtraction)
	assert.True(t, cfg.PALDAnalysisDeferred)
	assert.Equal(t, 10, cfg.BiasJobBatchSize)
	assert.Equal(t, 300, cfg.SchemaCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.SchemaCacheDuration())
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionDuration())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Len(t, cfg.EnabledAnalyses(), 6)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pald.yaml")
	require.NoError(t, os.WriteFile(path, []byte(heredoc.Doc(`
		schema_file_path: /etc/pald/schema.json
		bias_job_batch_size: 25
		enable_age_shift_analysis: false
		log_level: debug
	`)), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/etc/pald/schema.json", cfg.SchemaFilePath)
	assert.Equal(t, 25, cfg.BiasJobBatchSize)
	assert.Equal(t, "debug", cfg.LogLevel)

	enabled := cfg.EnabledAnalyses()
	assert.Len(t, enabled, 5)
	assert.NotContains(t, enabled, pald.AnalysisAgeShift)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("PALD_BIAS_JOB_BATCH_SIZE", "42")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.BiasJobBatchSize)
}

func TestValidate_MandatoryExtraction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pald.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("mandatory_pald_extraction: false\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mandatory_pald_extraction")
}

func TestValidate_PositiveBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pald.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("bias_job_batch_size: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bias_job_batch_size")
}

func TestEnabledAnalyses_MasterGate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.EnableBiasAnalysis = false
	assert.Nil(t, cfg.EnabledAnalyses())
}
