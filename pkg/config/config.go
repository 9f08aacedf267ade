// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package config loads and validates the service configuration from a
// YAML file, environment variables (prefix PALD) and defaults, in that
// priority order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gitte-labs/pald/pkg/pald"
)

// Config is the effective service configuration.
type Config struct {
	SchemaFilePath        string `mapstructure:"schema_file_path"`
	SchemaCacheTTL        int    `mapstructure:"schema_cache_ttl"` // seconds
	EnableSchemaEvolution bool   `mapstructure:"enable_schema_evolution"`

	MandatoryPALDExtraction bool `mapstructure:"mandatory_pald_extraction"`
	PALDAnalysisDeferred    bool `mapstructure:"pald_analysis_deferred"`

	EnableBiasAnalysis                  bool `mapstructure:"enable_bias_analysis"`
	EnableAgeShiftAnalysis              bool `mapstructure:"enable_age_shift_analysis"`
	EnableGenderConformityAnalysis      bool `mapstructure:"enable_gender_conformity_analysis"`
	EnableEthnicityConsistencyAnalysis  bool `mapstructure:"enable_ethnicity_consistency_analysis"`
	EnableOccupationalStereotypeAnalysis bool `mapstructure:"enable_occupational_stereotypes_analysis"`
	EnableAmbivalentStereotypeAnalysis  bool `mapstructure:"enable_ambivalent_stereotypes_analysis"`
	EnableMultipleStereotypingAnalysis  bool `mapstructure:"enable_multiple_stereotyping_analysis"`

	BiasJobBatchSize        int `mapstructure:"bias_job_batch_size"`
	BiasAnalysisTimeout     int `mapstructure:"bias_analysis_timeout"` // seconds
	// MaxConcurrentBiasJobs is how many jobs the worker drains in parallel.
	MaxConcurrentBiasJobs   int `mapstructure:"max_concurrent_bias_jobs"`
	QueueProcessingInterval int `mapstructure:"queue_processing_interval"` // seconds
	DataRetentionDays       int `mapstructure:"data_retention_days"`

	EnablePseudonymization bool   `mapstructure:"enable_pseudonymization"`
	PseudonymSecret        string `mapstructure:"pseudonym_secret"`

	DatabasePath       string `mapstructure:"database_path"`
	BiasVocabularyPath string `mapstructure:"bias_vocabulary_path"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema_file_path", "")
	v.SetDefault("schema_cache_ttl", 300)
	v.SetDefault("enable_schema_evolution", false)

	v.SetDefault("mandatory_pald_extraction", true)
	v.SetDefault("pald_analysis_deferred", true)

	v.SetDefault("enable_bias_analysis", true)
	v.SetDefault("enable_age_shift_analysis", true)
	v.SetDefault("enable_gender_conformity_analysis", true)
	v.SetDefault("enable_ethnicity_consistency_analysis", true)
	v.SetDefault("enable_occupational_stereotypes_analysis", true)
	v.SetDefault("enable_ambivalent_stereotypes_analysis", true)
	v.SetDefault("enable_multiple_stereotyping_analysis", true)

	v.SetDefault("bias_job_batch_size", 10)
	v.SetDefault("bias_analysis_timeout", 30)
	v.SetDefault("max_concurrent_bias_jobs", 4)
	v.SetDefault("queue_processing_interval", 30)
	v.SetDefault("data_retention_days", 30)

	v.SetDefault("enable_pseudonymization", true)
	v.SetDefault("pseudonym_secret", "")

	v.SetDefault("database_path", "pald.db")
	v.SetDefault("bias_vocabulary_path", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Load reads the configuration. An empty path skips the file layer; a
// named file that does not exist is an error, so typos surface early.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the configuration invariants at startup.
func (c *Config) Validate() error {
	if !c.MandatoryPALDExtraction {
		return fmt.Errorf("invalid configuration: mandatory_pald_extraction must be true")
	}
	positives := map[string]int{
		"schema_cache_ttl":          c.SchemaCacheTTL,
		"bias_job_batch_size":       c.BiasJobBatchSize,
		"bias_analysis_timeout":     c.BiasAnalysisTimeout,
		"max_concurrent_bias_jobs":  c.MaxConcurrentBiasJobs,
		"queue_processing_interval": c.QueueProcessingInterval,
		"data_retention_days":       c.DataRetentionDays,
	}
	for key, value := range positives {
		if value <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %d", key, value)
		}
	}
	return nil
}

// EnabledAnalyses returns the analysis types that are switched on, in
// canonical order. With the master gate off it returns nil.
func (c *Config) EnabledAnalyses() []pald.AnalysisType {
	if !c.EnableBiasAnalysis {
		return nil
	}
	gates := map[pald.AnalysisType]bool{
		pald.AnalysisAgeShift:                c.EnableAgeShiftAnalysis,
		pald.AnalysisGenderConformity:        c.EnableGenderConformityAnalysis,
		pald.AnalysisEthnicityConsistency:    c.EnableEthnicityConsistencyAnalysis,
		pald.AnalysisOccupationalStereotypes: c.EnableOccupationalStereotypeAnalysis,
		pald.AnalysisAmbivalentStereotypes:   c.EnableAmbivalentStereotypeAnalysis,
		pald.AnalysisMultipleStereotyping:    c.EnableMultipleStereotypingAnalysis,
	}
	var enabled []pald.AnalysisType
	for _, t := range pald.AllAnalysisTypes {
		if gates[t] {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// Duration accessors for the second-valued keys.

func (c *Config) SchemaCacheDuration() time.Duration {
	return time.Duration(c.SchemaCacheTTL) * time.Second
}

func (c *Config) BiasTimeoutDuration() time.Duration {
	return time.Duration(c.BiasAnalysisTimeout) * time.Second
}

func (c *Config) QueueInterval() time.Duration {
	return time.Duration(c.QueueProcessingInterval) * time.Second
}

func (c *Config) RetentionDuration() time.Duration {
	return time.Duration(c.DataRetentionDays) * 24 * time.Hour
}
