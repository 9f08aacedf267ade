// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/internal/log"
	"github.com/gitte-labs/pald/pkg/artifact"
	"github.com/gitte-labs/pald/pkg/bias"
	"github.com/gitte-labs/pald/pkg/config"
	"github.com/gitte-labs/pald/pkg/diff"
	"github.com/gitte-labs/pald/pkg/extract"
	"github.com/gitte-labs/pald/pkg/pipeline"
	"github.com/gitte-labs/pald/pkg/schema"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "paldd",
	Short: "PALD analysis core - pedagogical agent attribute extraction and bias analysis",
	Long: `paldd extracts schema-conformant attribute records from agent
descriptions, classifies description/embodiment differences, and runs
deferred stereotype analyses over the results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := log.Init(logLevel, logJSON); err != nil {
			return fmt.Errorf("failed to initialise logging: %w", err)
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}

// components bundles the wired processing stack for the subcommands.
type components struct {
	registry *schema.Registry
	pipeline *pipeline.Pipeline
	manager  *bias.Manager
	store    *artifact.Store
}

// buildComponents wires the full stack from the effective configuration.
func buildComponents() (*components, error) {
	logger := log.Logger()

	registry := schema.NewRegistry(schema.Config{
		Path:            cfg.SchemaFilePath,
		CacheTTL:        cfg.SchemaCacheDuration(),
		EnableEvolution: cfg.EnableSchemaEvolution,
		Logger:          logger,
	})

	store, err := artifact.NewStore(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	vocab, err := bias.LoadVocabulary(cfg.BiasVocabularyPath)
	if err != nil {
		store.Close()
		return nil, err
	}
	var manager *bias.Manager
	if cfg.EnableBiasAnalysis {
		manager = bias.NewManager(bias.ManagerConfig{
			Analyzer:   bias.NewAnalyzer(vocab, logger),
			Logger:     logger,
			JobTimeout: cfg.BiasTimeoutDuration(),
		})
	}

	p := pipeline.New(
		extract.New(registry, logger),
		diff.New(logger),
		manager,
		store,
		artifact.NewPseudonymizer(cfg.PseudonymSecret, cfg.EnablePseudonymization),
		logger,
		pipeline.Options{
			DeferBiasByDefault: cfg.PALDAnalysisDeferred,
			EnabledAnalyses:    cfg.EnabledAnalyses(),
		},
	)

	logger.Debug("components wired",
		zap.String("database", cfg.DatabasePath),
		zap.Bool("bias_analysis", cfg.EnableBiasAnalysis))
	return &components{
		registry: registry,
		pipeline: p,
		manager:  manager,
		store:    store,
	}, nil
}

func (c *components) close() {
	if c.store != nil {
		c.store.Close()
	}
}
